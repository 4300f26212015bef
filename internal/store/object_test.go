package store

import (
	"context"
	"testing"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
	"github.com/roach88/req1/internal/querysql"
)

func TestObjects_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")

	o := createTestObject("o1", m.ID, nil, 0, "Braking")
	o.Body = ptr("The vehicle shall brake.")
	o.Attributes = ir.IRObject{"status": ir.IRString("draft"), "asil": ir.IRInt(3)}
	o.ContentFingerprint = o.Fingerprint()
	o.ReviewedFingerprint = ptr(o.ContentFingerprint)
	seedObject(t, s, o)

	got, err := s.GetObject(ctx, "o1")
	if err != nil {
		t.Fatalf("GetObject() failed: %v", err)
	}
	if *got.Heading != "Braking" || *got.Body != "The vehicle shall brake." {
		t.Errorf("text fields = %q / %q", *got.Heading, *got.Body)
	}
	if got.Attributes["asil"] != ir.IRInt(3) || got.Attributes["status"] != ir.IRString("draft") {
		t.Errorf("attributes = %v", got.Attributes)
	}
	if got.ContentFingerprint != got.Fingerprint() {
		t.Error("stored fingerprint does not match recomputed fingerprint")
	}
	if got.NeedsReview() {
		t.Error("reviewed object reported as needing review")
	}

	var stored string
	if err := s.db.QueryRow("SELECT attributes FROM objects WHERE id = 'o1'").Scan(&stored); err != nil {
		t.Fatalf("read raw attributes: %v", err)
	}
	if stored != `{"asil":3,"status":"draft"}` {
		t.Errorf("stored attributes = %s, want canonical JSON", stored)
	}
}

func TestObjects_NullAttributes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")
	seedObject(t, s, createTestObject("o1", m.ID, nil, 0, "A"))

	attrs, ok, err := s.Attributes(ctx, "o1")
	if err != nil || !ok {
		t.Fatalf("Attributes() = %v, %v, %v", attrs, ok, err)
	}
	if attrs != nil {
		t.Errorf("Attributes() = %v, want nil", attrs)
	}

	_, ok, err = s.Attributes(ctx, "missing")
	if err != nil || ok {
		t.Errorf("Attributes(missing) ok = %v, err = %v", ok, err)
	}
}

func TestObjects_UpdateAndDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")
	o := seedObject(t, s, createTestObject("o1", m.ID, nil, 0, "A"))

	o.Heading = ptr("A2")
	o.Version = 2
	o.ContentFingerprint = o.Fingerprint()
	if err := s.UpdateObject(ctx, o); err != nil {
		t.Fatalf("UpdateObject() failed: %v", err)
	}
	got, _ := s.GetObject(ctx, "o1")
	if *got.Heading != "A2" || got.Version != 2 {
		t.Errorf("after update: heading %q version %d", *got.Heading, got.Version)
	}

	if err := s.UpdateObject(ctx, createTestObject("nope", m.ID, nil, 0, "X")); !ir.IsNotFound(err) {
		t.Errorf("UpdateObject(missing) error = %v, want NOT_FOUND", err)
	}

	if err := s.DeleteObject(ctx, "o1"); err != nil {
		t.Fatalf("DeleteObject() failed: %v", err)
	}
	if err := s.DeleteObject(ctx, "o1"); !ir.IsNotFound(err) {
		t.Errorf("second DeleteObject() error = %v, want NOT_FOUND", err)
	}
}

func TestObjects_UnknownModuleIsBadRequest(t *testing.T) {
	s := createTestStore(t)
	err := s.InsertObject(context.Background(), createTestObject("o1", "missing", nil, 0, "A"))
	if !ir.IsBadRequest(err) {
		t.Errorf("InsertObject() error = %v, want BAD_REQUEST", err)
	}
}

func TestHierarchyAndLevels(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")
	seedObject(t, s, createTestObject("r2", m.ID, nil, 1, "R2"))
	seedObject(t, s, createTestObject("r1", m.ID, nil, 0, "R1"))
	seedObject(t, s, createTestObject("c1", m.ID, ptr("r1"), 0, "C1"))

	nodes, err := s.Hierarchy(ctx, m.ID)
	if err != nil {
		t.Fatalf("Hierarchy() failed: %v", err)
	}
	if len(nodes) != 3 || nodes[0].ID != "c1" || nodes[1].ID != "r1" || nodes[2].ID != "r2" {
		t.Errorf("Hierarchy() order = %+v", nodes)
	}

	n, err := s.SetLevels(ctx, map[string]string{"r1": "1", "c1": "1.1", "r2": "2"})
	if err != nil || n != 3 {
		t.Fatalf("SetLevels() = %d, %v; want 3", n, err)
	}
	n, err = s.SetLevels(ctx, map[string]string{"r1": "1", "c1": "1.1", "r2": "2"})
	if err != nil || n != 0 {
		t.Errorf("unchanged SetLevels() = %d, %v; want 0", n, err)
	}

	count, err := s.ChildCount(ctx, "r1")
	if err != nil || count != 1 {
		t.Errorf("ChildCount(r1) = %d, %v; want 1", count, err)
	}
}

func TestListObjects_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")

	a := createTestObject("a", m.ID, nil, 0, "Brake pedal")
	a.Attributes = ir.IRObject{"status": ir.IRString("approved")}
	a.ContentFingerprint = a.Fingerprint()
	a.ReviewedFingerprint = ptr(a.ContentFingerprint)
	seedObject(t, s, a)

	b := createTestObject("b", m.ID, nil, 1, "Steering")
	b.Body = ptr("Brake assist interacts with steering.")
	b.Classification = ir.ClassInformative
	b.ContentFingerprint = b.Fingerprint()
	seedObject(t, s, b)

	seedObject(t, s, createTestObject("c", m.ID, nil, 2, "Lights"))

	tests := []struct {
		name   string
		filter queryir.ObjectFilter
		want   []string
	}{
		{"all in position order", queryir.ObjectFilter{}, []string{"a", "b", "c"}},
		{"search heading and body", queryir.ObjectFilter{Search: "BRAKE"}, []string{"a", "b"}},
		{"classification", queryir.ObjectFilter{Classification: "informative"}, []string{"b"}},
		{"needs review", queryir.ObjectFilter{NeedsReview: boolPtr(true)}, []string{"b", "c"}},
		{"reviewed", queryir.ObjectFilter{NeedsReview: boolPtr(false)}, []string{"a"}},
		{"attribute", queryir.ObjectFilter{Attributes: ir.IRObject{"status": ir.IRString("approved")}}, []string{"a"}},
		{"sort heading desc", queryir.ObjectFilter{SortBy: "heading", SortDesc: true}, []string{"b", "c", "a"}},
		{"page", queryir.ObjectFilter{Limit: 1, Offset: 1}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, total, err := s.ListObjects(ctx, m.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListObjects() failed: %v", err)
			}
			var ids []string
			for _, o := range objects {
				ids = append(ids, o.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", ids, tt.want)
				}
			}
			if tt.filter.Limit == 0 && total != len(tt.want) {
				t.Errorf("total = %d, want %d", total, len(tt.want))
			}
		})
	}

	_, total, _ := s.ListObjects(ctx, m.ID, queryir.ObjectFilter{Limit: 1, Offset: 1})
	if total != 3 {
		t.Errorf("paged total = %d, want 3", total)
	}

	if _, _, err := s.ListObjects(ctx, m.ID, queryir.ObjectFilter{SortBy: "body"}); !ir.IsBadRequest(err) {
		t.Errorf("bad sort error = %v, want BAD_REQUEST", err)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCompiledQuery_ExecutesWithIDTiebreaker(t *testing.T) {
	s := createTestStore(t)
	m := seedModule(t, s, "SRS")
	seedObject(t, s, createTestObject("b", m.ID, nil, 0, "B"))
	seedObject(t, s, createTestObject("a", m.ID, nil, 0, "A"))
	seedObject(t, s, createTestObject("c", m.ID, nil, 0, "C"))

	sql, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{
		From:    "objects",
		Columns: []string{"id"},
		Filter:  queryir.Equals{Field: "module_id", Value: ir.IRString(m.ID)},
		Order:   []queryir.OrderKey{{Field: "position"}},
	})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	rows, err := s.db.Query(sql, params...)
	if err != nil {
		t.Fatalf("query %q failed: %v", sql, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan() failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
}

package store

import (
	"context"
	"testing"

	"github.com/roach88/req1/internal/ir"
)

func TestScripts_SeqAndEnabledFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")

	scripts := []ir.Script{
		{ID: "s1", ModuleID: m.ID, Name: "first", Type: ir.ScriptTrigger, Hook: ir.HookPreSave, Source: "1", Enabled: true},
		{ID: "s2", ModuleID: m.ID, Name: "post", Type: ir.ScriptTrigger, Hook: ir.HookPostSave, Source: "2", Enabled: true},
		{ID: "s3", ModuleID: m.ID, Name: "off", Type: ir.ScriptTrigger, Hook: ir.HookPreSave, Source: "3", Enabled: false},
		{ID: "s4", ModuleID: m.ID, Name: "second", Type: ir.ScriptTrigger, Hook: ir.HookPreSave, Source: "4", Enabled: true},
		{ID: "s5", ModuleID: m.ID, Name: "col", Type: ir.ScriptLayout, Source: "5", Enabled: true},
	}
	for i, sc := range scripts {
		seq, err := s.InsertScript(ctx, sc)
		if err != nil {
			t.Fatalf("InsertScript(%s) failed: %v", sc.Name, err)
		}
		if seq != int64(i+1) {
			t.Errorf("InsertScript(%s) seq = %d, want %d", sc.Name, seq, i+1)
		}
	}

	got, err := s.EnabledScripts(ctx, m.ID, ir.ScriptTrigger, ir.HookPreSave)
	if err != nil {
		t.Fatalf("EnabledScripts() failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "first" || got[1].Name != "second" {
		t.Errorf("EnabledScripts(pre_save) = %+v", got)
	}

	layouts, _ := s.EnabledScripts(ctx, m.ID, ir.ScriptLayout, "")
	if len(layouts) != 1 || layouts[0].Hook != "" {
		t.Errorf("EnabledScripts(layout) = %+v", layouts)
	}

	all, _ := s.ListScripts(ctx, m.ID)
	if len(all) != 5 {
		t.Errorf("ListScripts() len = %d, want 5", len(all))
	}
}

func TestScripts_Constraints(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")

	_, err := s.InsertScript(ctx, ir.Script{ID: "s1", ModuleID: m.ID, Name: "t", Type: ir.ScriptTrigger, Source: "x", Enabled: true})
	if !ir.IsBadRequest(err) {
		t.Errorf("trigger without hook error = %v, want BAD_REQUEST", err)
	}

	if _, err := s.InsertScript(ctx, ir.Script{ID: "s2", ModuleID: m.ID, Name: "a", Type: ir.ScriptAction, Source: "x"}); err != nil {
		t.Fatalf("InsertScript() failed: %v", err)
	}
	_, err = s.InsertScript(ctx, ir.Script{ID: "s3", ModuleID: m.ID, Name: "a", Type: ir.ScriptAction, Source: "y"})
	if !ir.IsConflict(err) {
		t.Errorf("duplicate name error = %v, want CONFLICT", err)
	}
}

func TestScripts_UpdateKeepsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := seedModule(t, s, "SRS")

	sc := ir.Script{ID: "s1", ModuleID: m.ID, Name: "a", Type: ir.ScriptAction, Source: "x", Enabled: true}
	seq, err := s.InsertScript(ctx, sc)
	if err != nil {
		t.Fatalf("InsertScript() failed: %v", err)
	}

	sc.Source = "y"
	sc.Enabled = false
	if err := s.UpdateScript(ctx, sc); err != nil {
		t.Fatalf("UpdateScript() failed: %v", err)
	}
	got, err := s.ScriptByName(ctx, m.ID, "a")
	if err != nil {
		t.Fatalf("ScriptByName() failed: %v", err)
	}
	if got.Source != "y" || got.Enabled || got.Seq != seq {
		t.Errorf("after update: %+v", got)
	}

	if err := s.DeleteScript(ctx, "s1"); err != nil {
		t.Fatalf("DeleteScript() failed: %v", err)
	}
	if _, err := s.GetScript(ctx, "s1"); !ir.IsNotFound(err) {
		t.Errorf("GetScript() after delete error = %v, want NOT_FOUND", err)
	}
}

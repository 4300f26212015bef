package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
)

func TestCompile_EqualsWithTiebreaker(t *testing.T) {
	c := NewSQLCompiler()
	sql, params, err := c.Compile(queryir.Select{
		From:    "objects",
		Columns: []string{"id", "heading"},
		Filter:  queryir.Equals{Field: "module_id", Value: ir.IRString("m1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, heading FROM objects WHERE module_id = ? ORDER BY id COLLATE BINARY ASC", sql)
	assert.Equal(t, []any{"m1"}, params)
}

func TestCompile_OrderLimitOffset(t *testing.T) {
	c := NewSQLCompiler()
	sql, params, err := c.Compile(queryir.Select{
		From:    "objects",
		Columns: []string{"id"},
		Order:   []queryir.OrderKey{{Field: "position"}, {Field: "version", Desc: true}},
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM objects ORDER BY position ASC, version DESC, id COLLATE BINARY ASC LIMIT ? OFFSET ?", sql)
	assert.Equal(t, []any{10, 20}, params)
}

func TestCompile_OffsetWithoutLimit(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From: "objects", Columns: []string{"id"}, Offset: 5,
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT -1 OFFSET ?")
	assert.Equal(t, []any{5}, params)
}

func TestCompile_AttributeEquals(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:    "objects",
		Columns: []string{"id"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.AttributeEquals{Key: "status", Value: ir.IRString("approved")},
			queryir.AttributeEquals{Key: "safety.critical", Value: ir.IRBool(true)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM objects WHERE json_extract(attributes, ?) = ? AND json_extract(attributes, ?) = ? ORDER BY id COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{`$."status"`, "approved", `$."safety.critical"`, int64(1)}, params)
}

func TestCompile_ContainsEscapesWildcards(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:    "objects",
		Columns: []string{"id"},
		Filter:  queryir.Contains{Fields: []string{"heading", "body"}, Text: "50%_Load"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `(lower(coalesce(heading, '')) LIKE ? ESCAPE '\' OR lower(coalesce(body, '')) LIKE ? ESCAPE '\')`)
	assert.Equal(t, []any{`%50\%\_load%`, `%50\%\_load%`}, params)
}

func TestCompile_FieldComparisons(t *testing.T) {
	c := NewSQLCompiler()

	sql, params, err := c.Compile(queryir.Select{
		From: "objects", Columns: []string{"id"},
		Filter: queryir.FieldsDiffer{Left: "reviewed_fingerprint", Right: "content_fingerprint"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE reviewed_fingerprint IS NOT content_fingerprint")
	assert.Empty(t, params)

	sql, _, err = c.Compile(queryir.Select{
		From: "objects", Columns: []string{"id"},
		Filter: queryir.FieldsEqual{Left: "reviewed_fingerprint", Right: "content_fingerprint"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE reviewed_fingerprint = content_fingerprint")
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.Select{
		From: "objects", Columns: []string{"id"}, Filter: queryir.And{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
}

func TestCompile_RejectsNonScalar(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Select{
		From: "objects", Columns: []string{"id"},
		Filter: queryir.Equals{Field: "heading", Value: ir.IRArray{ir.IRInt(1)}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be used as SQL parameter")
}

func TestCompile_NilQuery(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(nil)
	require.Error(t, err)
}

func TestCompileCount_IgnoresPaging(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompileCount(queryir.Select{
		From:    "objects",
		Columns: []string{"id"},
		Filter:  queryir.Equals{Field: "module_id", Value: ir.IRString("m1")},
		Order:   []queryir.OrderKey{{Field: "heading"}},
		Limit:   5,
		Offset:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM objects WHERE module_id = ?", sql)
	assert.Equal(t, []any{"m1"}, params)
}

func TestCompile_ObjectFilter(t *testing.T) {
	yes := true
	sel, err := queryir.ObjectFilter{
		Classification: "normative",
		NeedsReview:    &yes,
		SortBy:         "heading",
		SortDesc:       true,
	}.Query("m1")
	require.NoError(t, err)

	sql, params, err := NewSQLCompiler().Compile(sel)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE module_id = ? AND classification = ? AND reviewed_fingerprint IS NOT content_fingerprint")
	assert.Contains(t, sql, "ORDER BY heading DESC, id COLLATE BINARY ASC LIMIT ?")
	assert.Equal(t, []any{"m1", "normative", queryir.DefaultLimit}, params)
}

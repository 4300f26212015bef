package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
)

func TestObjectFilter_Defaults(t *testing.T) {
	sel, err := ObjectFilter{}.Query("m1")
	require.NoError(t, err)

	assert.Equal(t, ObjectTable, sel.From)
	assert.Equal(t, ObjectColumns, sel.Columns)
	assert.Equal(t, DefaultLimit, sel.Limit)
	assert.Equal(t, []OrderKey{{Field: "position"}}, sel.Order)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "module_id", Value: ir.IRString("m1")},
	}}, sel.Filter)
	assert.True(t, Validate(sel, ObjectColumns).Valid)
}

func TestObjectFilter_AllCriteria(t *testing.T) {
	no := false
	sel, err := ObjectFilter{
		Classification: "informative",
		NeedsReview:    &no,
		Search:         "brake",
		Attributes:     ir.IRObject{"status": ir.IRString("draft"), "asil": ir.IRString("B")},
		Limit:          MaxLimit + 1,
		Offset:         3,
	}.Query("m1")
	require.NoError(t, err)

	and := sel.Filter.(And)
	require.Len(t, and.Predicates, 6)
	assert.Equal(t, FieldsEqual{Left: "reviewed_fingerprint", Right: "content_fingerprint"}, and.Predicates[2])
	assert.Equal(t, Contains{Fields: []string{"heading", "body"}, Text: "brake"}, and.Predicates[3])
	// attribute predicates follow key order
	assert.Equal(t, "asil", and.Predicates[4].(AttributeEquals).Key)
	assert.Equal(t, "status", and.Predicates[5].(AttributeEquals).Key)
	assert.Equal(t, MaxLimit, sel.Limit)
	assert.Equal(t, 3, sel.Offset)
	assert.True(t, Validate(sel, ObjectColumns).Valid)
}

func TestObjectFilter_Errors(t *testing.T) {
	_, err := ObjectFilter{Classification: "optional"}.Query("m1")
	assert.Error(t, err)

	_, err = ObjectFilter{SortBy: "body"}.Query("m1")
	assert.Error(t, err)

	_, err = ObjectFilter{Offset: -1}.Query("m1")
	assert.Error(t, err)
}

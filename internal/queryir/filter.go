package queryir

import (
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// ObjectTable is the source name of requirement objects.
const ObjectTable = "objects"

// ObjectColumns lists the object columns in scan order.
var ObjectColumns = []string{
	"id", "module_id", "parent_id", "position", "level", "heading", "body",
	"attributes", "classification", "version", "content_fingerprint", "reviewed_fingerprint",
}

// Sort fields a caller may request.
var sortFields = map[string]string{
	"":         "position",
	"position": "position",
	"heading":  "heading",
	"level":    "level",
	"version":  "version",
}

// Paging bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ObjectFilter is the caller-facing filter for listing a module's objects.
type ObjectFilter struct {
	Classification string
	NeedsReview    *bool
	Search         string
	Attributes     ir.IRObject
	SortBy         string
	SortDesc       bool
	Offset         int
	Limit          int
}

// Query builds the Select for objects of moduleID matching the filter.
func (f ObjectFilter) Query(moduleID string) (Select, error) {
	preds := []Predicate{Equals{Field: "module_id", Value: ir.IRString(moduleID)}}

	if f.Classification != "" {
		if _, err := ir.ParseClassification(f.Classification); err != nil {
			return Select{}, err
		}
		preds = append(preds, Equals{Field: "classification", Value: ir.IRString(f.Classification)})
	}
	if f.NeedsReview != nil {
		if *f.NeedsReview {
			preds = append(preds, FieldsDiffer{Left: "reviewed_fingerprint", Right: "content_fingerprint"})
		} else {
			preds = append(preds, FieldsEqual{Left: "reviewed_fingerprint", Right: "content_fingerprint"})
		}
	}
	if f.Search != "" {
		preds = append(preds, Contains{Fields: []string{"heading", "body"}, Text: f.Search})
	}
	for _, k := range f.Attributes.SortedKeys() {
		preds = append(preds, AttributeEquals{Key: k, Value: f.Attributes[k]})
	}

	field, ok := sortFields[f.SortBy]
	if !ok {
		return Select{}, fmt.Errorf("cannot sort by %q", f.SortBy)
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if f.Offset < 0 {
		return Select{}, fmt.Errorf("offset must not be negative")
	}

	return Select{
		From:    ObjectTable,
		Columns: ObjectColumns,
		Filter:  And{Predicates: preds},
		Order:   []OrderKey{{Field: field, Desc: f.SortDesc}},
		Limit:   limit,
		Offset:  f.Offset,
	}, nil
}

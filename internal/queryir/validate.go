package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/req1/internal/ir"
)

// ValidationResult lists every problem found in a query.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns the problems as one error, or nil when the query is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %v", r.Errors)
}

// Validate checks that a query only names known columns and uses scalar
// comparison values. Validate is a pure function with no side effects.
func Validate(q Query, columns []string) ValidationResult {
	v := &validator{columns: columns, errors: []string{}}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	columns []string
	errors  []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) field(name string) {
	if !slices.Contains(v.columns, name) {
		v.addError("unknown field %q", name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addError("missing source")
	}
	if len(sel.Columns) == 0 {
		v.addError("empty column list - explicit columns required")
	}
	for _, c := range sel.Columns {
		v.field(c)
	}
	for _, o := range sel.Order {
		v.field(o.Field)
	}
	if sel.Limit < 0 || sel.Offset < 0 {
		v.addError("negative limit or offset")
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.field(pred.Field)
		v.scalar(pred.Field, pred.Value)
	case AttributeEquals:
		if pred.Key == "" || strings.ContainsAny(pred.Key, `"\`) {
			v.addError("invalid attribute key %q", pred.Key)
		}
		v.scalar("attributes."+pred.Key, pred.Value)
	case Contains:
		if len(pred.Fields) == 0 {
			v.addError("contains without fields")
		}
		for _, f := range pred.Fields {
			v.field(f)
		}
	case FieldsDiffer:
		v.field(pred.Left)
		v.field(pred.Right)
	case FieldsEqual:
		v.field(pred.Left)
		v.field(pred.Right)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) scalar(field string, value ir.IRValue) {
	switch value.(type) {
	case ir.IRString, ir.IRInt, ir.IRFloat, ir.IRBool:
	default:
		v.addError("field %q compared to non-scalar %T", field, value)
	}
}

package queryir

import "github.com/roach88/req1/internal/ir"

// Query represents an abstract query. Sealed: only Select implements it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition. Sealed to this package.
//
// Predicate types:
//   - Equals: field = value
//   - AttributeEquals: attributes[key] = value
//   - Contains: case-insensitive substring match over one or more fields
//   - FieldsDiffer: two columns differ, NULL-aware
//   - FieldsEqual: two columns hold the same non-NULL value
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Select reads rows of one source.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order>, id LIMIT <limit> OFFSET <offset>
//
// Limit 0 means no limit.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	Order   []OrderKey
	Limit   int
	Offset  int
}

func (Select) queryNode() {}

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Field string
	Desc  bool
}

// Equals matches rows where Field equals Value.
// Value must be a scalar (string, int, float, bool).
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// AttributeEquals matches rows whose attribute map holds Value at Key.
type AttributeEquals struct {
	Key   string
	Value ir.IRValue
}

func (AttributeEquals) predicateNode() {}

// Contains matches rows where any of Fields contains Text,
// ignoring ASCII case.
type Contains struct {
	Fields []string
	Text   string
}

func (Contains) predicateNode() {}

// FieldsDiffer matches rows where Left and Right hold different values,
// treating NULL as a value (SQL IS NOT).
type FieldsDiffer struct {
	Left  string
	Right string
}

func (FieldsDiffer) predicateNode() {}

// FieldsEqual matches rows where Left and Right are equal and not NULL.
type FieldsEqual struct {
	Left  string
	Right string
}

func (FieldsEqual) predicateNode() {}

// And represents a conjunction. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

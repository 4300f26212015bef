// Package queryir provides the query intermediate representation used to
// list requirement objects.
//
// QueryIR is the boundary between caller-facing filters (ObjectFilter) and
// the storage backend. The SQL backend lives in querysql; the store executes
// what it produces.
//
//	[ObjectFilter] → [Query IR] → [querysql] → SQLite
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Contains:
//	...
//	}
//
// CRITICAL PATTERNS:
//
// Deterministic order: every compiled query ends its ORDER BY with the id
// column, so pages never overlap or skip rows.
//
// Whitelisted fields: Validate rejects any field not in the object column
// set before a query reaches a backend. Values are always parameters.
package queryir

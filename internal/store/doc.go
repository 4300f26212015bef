// Package store provides SQLite-backed persistence for req1 modules,
// objects, links, scripts and object history.
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Every list query ends its ORDER BY with id COLLATE BINARY
//   - Objects list by (position, id); scripts by (seq, id); history by id
//
// Canonical Attributes
//   - Attribute maps are stored as RFC 8785 canonical JSON, NULL when absent
//   - Equal maps always store identical text
//
// Transactions
//   - WithTx runs a whole content operation in one transaction
//   - Store and Tx share every read and write method, so the engine's
//     Catalog can be served from either
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

// Package integrity keeps derived requirement state consistent: it applies
// buffered script mutations, decides which links turn suspect after a
// content change, and recomputes dotted hierarchy levels.
//
// Everything here is storage-agnostic. Callers run these functions inside
// the transaction that carries the triggering change.
package integrity

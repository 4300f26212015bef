// Package ir provides the foundational types shared by every req1 package.
//
// It holds the tagged script value (IRValue), its canonical JSON encoding,
// the content fingerprint, the requirement domain types (objects, links,
// scripts, mutations, script worlds) and the error taxonomy. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values crossing the host/guest boundary are always IRValue, never raw any
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only encoding
//     used for hashing and for persisted attribute columns
//   - All JSON tags use snake_case
//   - IDs are UUID strings; parsing failures surface as REFERENCE_FAULT
package ir

// Package engine orchestrates user scripts around content operations.
//
// The engine never touches storage directly. Everything it needs comes
// through a Catalog (enabled scripts plus a module snapshot), and every
// script runs through a sandbox.Runtime.
//
// ARCHITECTURE:
//
// Trigger Pipeline:
//  1. Load the enabled trigger scripts for the hook, in declaration order
//  2. No scripts: return immediately, no snapshot is built
//  3. Build exactly one ScriptWorld for the whole pipeline
//  4. Run scripts one at a time; the first rejection or fault stops the run
//  5. Merge mutations in run order, last writer wins per (object, key)
//
// Every script in one pipeline sees the same pre-operation snapshot.
// Mutations from earlier scripts are not visible to later ones.
//
// Validation Sweep:
// Runs every enabled validate trigger against every object and turns each
// rejection or fault into an issue. A sweep never stops early.
//
// Layout Columns:
// Layout runs are pure, so a column is computed by a bounded worker pool.
// Each invocation owns its interpreter; results come back in snapshot order.
package engine

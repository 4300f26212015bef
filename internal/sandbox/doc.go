// Package sandbox executes untrusted user scripts.
//
// Every invocation gets a fresh interpreter and a fresh hostState arena.
// The arena holds the read-only ScriptWorld, the trigger context or layout
// object, and the buffers a script writes to (mutations, rejection, output).
// It is attached before execution and harvested right after, and is never
// shared between invocations, so concurrent layout runs need no locking.
//
// Two backends implement the same capability surface:
//
//	javascript (goja)   module, context, obj globals; req1.objects(), ...
//	go (yaegi)          req1.Module(), req1.Context(), req1.Obj(), req1.Objects(), ...
//
// Neither backend exposes filesystem, process, network or module loading.
// The capability set listed on hostState is exhaustive.
package sandbox

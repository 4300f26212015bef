// Package service implements the req1 operations on top of the store and
// the script engine.
//
// Every content operation runs in one store transaction: trigger scripts,
// mutation application, fingerprinting, suspect-link propagation, review
// invalidation, level recomputation and the history append either all
// commit or none do.
//
// Inside a transaction only the *store.Tx may be used. The store keeps a
// single connection, so touching the Store from inside WithTx blocks.
package service

// Package testutil provides deterministic helpers for tests and scenarios.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates deterministic, well-formed UUIDs for tests.
//
// The n-th call returns 00000000-0000-7000-8000-<n as 12 hex digits>, so
// ids sort in creation order and parse as version 7 UUIDs. This enables
// golden snapshot comparison: the same scenario always produces the same
// ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first id ends in ...000000000001.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return FormatID(g.seq)
}

// Count returns how many ids have been generated.
func (g *SequentialIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. After Reset(), the next id is FormatID(1).
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FormatID returns the id SequentialIDs produces for sequence number n.
func FormatID(n int64) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012x", n)
}

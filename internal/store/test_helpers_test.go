package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/req1/internal/ir"
)

// createTestStore creates a new store on a temp file for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedModule inserts a module named name with id "mod-<name>".
func seedModule(t *testing.T, s *Store, name string) ir.Module {
	t.Helper()
	m := ir.Module{
		ID:                    "mod-" + name,
		Name:                  name,
		DefaultClassification: ir.ClassNormative,
		RequiredAttributes:    []string{},
	}
	if err := s.InsertModule(context.Background(), m); err != nil {
		t.Fatalf("InsertModule() failed: %v", err)
	}
	return m
}

// createTestObject builds an object with a computed fingerprint.
func createTestObject(id, moduleID string, parent *string, position int64, heading string) ir.Object {
	o := ir.Object{
		ID:             id,
		ModuleID:       moduleID,
		ParentID:       parent,
		Position:       position,
		Heading:        &heading,
		Classification: ir.ClassNormative,
		Version:        1,
	}
	o.ContentFingerprint = o.Fingerprint()
	return o
}

func seedObject(t *testing.T, s *Store, o ir.Object) ir.Object {
	t.Helper()
	if err := s.InsertObject(context.Background(), o); err != nil {
		t.Fatalf("InsertObject(%s) failed: %v", o.ID, err)
	}
	return o
}

func ptr(s string) *string { return &s }

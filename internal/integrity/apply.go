package integrity

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// AttributeTarget is the storage the mutation applier writes through.
type AttributeTarget interface {
	// Attributes returns the object's current attribute map (nil when it
	// has none). found is false for unknown objects.
	Attributes(ctx context.Context, objectID string) (attrs ir.IRObject, found bool, err error)

	// ReplaceAttributes stores the full attribute map of one object.
	ReplaceAttributes(ctx context.Context, objectID string, attrs ir.IRObject) error
}

// ApplyMutations merges mutations into their target objects and writes each
// affected object exactly once, in order of first appearance.
//
// All merged maps are computed before the first write. An unknown object
// fails the whole call with a REFERENCE_FAULT and nothing is written.
// Returns the number of objects written.
func ApplyMutations(ctx context.Context, target AttributeTarget, mutations []ir.Mutation) (int, error) {
	order, groups := group(mutations)

	merged := make([]ir.IRObject, len(order))
	for i, id := range order {
		attrs, found, err := target.Attributes(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("load attributes of %s: %w", id, err)
		}
		if !found {
			return 0, ir.ReferenceFault(id, fmt.Sprintf("mutation targets unknown object %s", id))
		}
		merged[i] = MergeAttributes(attrs, groups[id])
	}

	for i, id := range order {
		if err := target.ReplaceAttributes(ctx, id, merged[i]); err != nil {
			return i, fmt.Errorf("replace attributes of %s: %w", id, err)
		}
	}
	return len(order), nil
}

// MergeAttributes returns a copy of base with mutations applied in order:
// new keys are inserted, existing keys overwritten. base is not modified.
func MergeAttributes(base ir.IRObject, mutations []ir.Mutation) ir.IRObject {
	out := base.Clone()
	if out == nil {
		out = make(ir.IRObject, len(mutations))
	}
	for _, m := range mutations {
		v := m.Value
		if v == nil {
			v = ir.IRNull{}
		}
		out[m.Key] = v
	}
	return out
}

// ForObject splits mutations into those targeting id and all others,
// preserving order within each part.
func ForObject(mutations []ir.Mutation, id string) (own, foreign []ir.Mutation) {
	for _, m := range mutations {
		if m.ObjectID == id {
			own = append(own, m)
		} else {
			foreign = append(foreign, m)
		}
	}
	return own, foreign
}

func group(mutations []ir.Mutation) ([]string, map[string][]ir.Mutation) {
	var order []string
	groups := make(map[string][]ir.Mutation)
	for _, m := range mutations {
		if _, seen := groups[m.ObjectID]; !seen {
			order = append(order, m.ObjectID)
		}
		groups[m.ObjectID] = append(groups[m.ObjectID], m)
	}
	return order, groups
}

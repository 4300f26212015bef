package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
)

// memTarget is an in-memory AttributeTarget that records writes.
type memTarget struct {
	attrs  map[string]ir.IRObject
	writes []string
	fail   error
}

func (m *memTarget) Attributes(_ context.Context, id string) (ir.IRObject, bool, error) {
	a, ok := m.attrs[id]
	return a, ok, nil
}

func (m *memTarget) ReplaceAttributes(_ context.Context, id string, attrs ir.IRObject) error {
	if m.fail != nil {
		return m.fail
	}
	m.writes = append(m.writes, id)
	m.attrs[id] = attrs
	return nil
}

func TestApplyMutationsMergesPerObject(t *testing.T) {
	target := &memTarget{attrs: map[string]ir.IRObject{
		"a": {"keep": ir.IRInt(1), "status": ir.IRString("draft")},
		"b": nil,
	}}

	n, err := ApplyMutations(context.Background(), target, []ir.Mutation{
		{ObjectID: "a", Key: "status", Value: ir.IRString("review")},
		{ObjectID: "b", Key: "owner", Value: ir.IRString("ana")},
		{ObjectID: "a", Key: "priority", Value: ir.IRInt(2)},
		{ObjectID: "a", Key: "status", Value: ir.IRString("approved")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// One write per object, first-appearance order.
	assert.Equal(t, []string{"a", "b"}, target.writes)
	assert.Equal(t, ir.IRObject{
		"keep":     ir.IRInt(1),
		"status":   ir.IRString("approved"),
		"priority": ir.IRInt(2),
	}, target.attrs["a"])
	assert.Equal(t, ir.IRObject{"owner": ir.IRString("ana")}, target.attrs["b"])
}

func TestApplyMutationsUnknownObjectWritesNothing(t *testing.T) {
	target := &memTarget{attrs: map[string]ir.IRObject{"a": {}}}

	_, err := ApplyMutations(context.Background(), target, []ir.Mutation{
		{ObjectID: "a", Key: "k", Value: ir.IRInt(1)},
		{ObjectID: "ghost", Key: "k", Value: ir.IRInt(1)},
	})
	require.Error(t, err)
	assert.True(t, ir.IsReferenceFault(err))
	assert.Empty(t, target.writes)
}

func TestApplyMutationsPropagatesWriteError(t *testing.T) {
	boom := errors.New("disk full")
	target := &memTarget{attrs: map[string]ir.IRObject{"a": {}}, fail: boom}

	_, err := ApplyMutations(context.Background(), target, []ir.Mutation{{ObjectID: "a", Key: "k", Value: ir.IRInt(1)}})
	assert.ErrorIs(t, err, boom)
}

func TestApplyMutationsEmpty(t *testing.T) {
	target := &memTarget{attrs: map[string]ir.IRObject{}}
	n, err := ApplyMutations(context.Background(), target, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMergeAttributesDoesNotAliasBase(t *testing.T) {
	base := ir.IRObject{"k": ir.IRInt(1)}
	out := MergeAttributes(base, []ir.Mutation{{Key: "k", Value: ir.IRInt(2)}, {Key: "n", Value: nil}})

	assert.Equal(t, ir.IRInt(1), base["k"])
	assert.Equal(t, ir.IRObject{"k": ir.IRInt(2), "n": ir.IRNull{}}, out)
}

func TestForObject(t *testing.T) {
	muts := []ir.Mutation{
		{ObjectID: "self", Key: "a"},
		{ObjectID: "other", Key: "b"},
		{ObjectID: "self", Key: "c"},
	}
	own, foreign := ForObject(muts, "self")
	assert.Equal(t, []ir.Mutation{muts[0], muts[2]}, own)
	assert.Equal(t, []ir.Mutation{muts[1]}, foreign)
}

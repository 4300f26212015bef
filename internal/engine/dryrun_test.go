package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
)

func TestDryRun_TriggerReportsRejection(t *testing.T) {
	e, _ := newTestEngine(t)
	cat := &fakeCatalog{world: testWorld()}
	s := trigger("gate", ir.HookPreSave, `req1.set(context.object.id, "x", 1); if (context.hook_point === "pre_delete") { req1.reject(); }`)
	obj := ir.ObjectProjection{ID: objA}

	res, err := e.DryRun(context.Background(), cat, s, DryRunRequest{Object: &obj})
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.Len(t, res.Mutations, 1)

	res, err = e.DryRun(context.Background(), cat, s, DryRunRequest{Object: &obj, Hook: ir.HookPreDelete})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	require.NotNil(t, res.Reason)
	assert.Equal(t, ir.DefaultRejectReason, *res.Reason)
}

func TestDryRun_LayoutAndAction(t *testing.T) {
	e, _ := newTestEngine(t)
	cat := &fakeCatalog{world: testWorld()}
	obj := testWorld().Objects[0]

	res, err := e.DryRun(context.Background(), cat, layoutScript(`return obj.heading;`), DryRunRequest{Object: &obj})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, "Braking", *res.Value)

	action := ir.Script{ModuleID: moduleID, Name: "count", Type: ir.ScriptAction, Enabled: true,
		Source: `req1.print("objects: " + req1.objects().length);`}
	res, err = e.DryRun(context.Background(), cat, action, DryRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"objects: 3"}, res.Output)
}

func TestDryRun_MissingInputs(t *testing.T) {
	e, _ := newTestEngine(t)
	cat := &fakeCatalog{world: testWorld()}

	_, err := e.DryRun(context.Background(), cat, layoutScript(`return 1;`), DryRunRequest{})
	assert.True(t, ir.IsBadRequest(err))

	obj := ir.ObjectProjection{ID: objA}
	noHook := trigger("t", "", `1;`)
	_, err = e.DryRun(context.Background(), cat, noHook, DryRunRequest{Object: &obj})
	assert.True(t, ir.IsBadRequest(err))
}

func TestRunAction_RequiresActionType(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.RunAction(context.Background(), &fakeCatalog{world: testWorld()}, layoutScript(`1;`))
	assert.True(t, ir.IsBadRequest(err))
}

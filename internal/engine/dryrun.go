package engine

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// DryRunRequest supplies the inputs a script type needs for a test run.
type DryRunRequest struct {
	// Object is required for trigger and layout scripts.
	Object *ir.ObjectProjection

	// Hook overrides the trigger's declared hook point.
	Hook ir.HookPoint
}

// DryRunResult reports what a script would do. Only the fields of the
// script's type are set.
type DryRunResult struct {
	ScriptType ir.ScriptType `json:"script_type"`
	Rejected   bool          `json:"rejected,omitempty"`
	Reason     *string       `json:"reason,omitempty"`
	Mutations  []ir.Mutation `json:"mutations,omitempty"`
	Value      *string       `json:"value,omitempty"`
	Output     []string      `json:"output,omitempty"`
}

// DryRun runs any script against a snapshot of its module without applying
// anything. A trigger rejection is reported in the result, not as an error.
func (e *Engine) DryRun(ctx context.Context, cat Catalog, script ir.Script, req DryRunRequest) (DryRunResult, error) {
	out := DryRunResult{ScriptType: script.Type}

	if script.Type != ir.ScriptAction && req.Object == nil {
		return out, ir.BadRequest("object is required for %s test", script.Type)
	}

	world, err := cat.World(ctx, script.ModuleID)
	if err != nil {
		return out, fmt.Errorf("build script world: %w", err)
	}

	switch script.Type {
	case ir.ScriptTrigger:
		hook := req.Hook
		if hook == "" {
			hook = script.Hook
		}
		if hook == "" {
			return out, ir.BadRequest("hook_point is required for trigger test")
		}
		if !hook.Valid() {
			return out, ir.BadRequest("invalid hook_point %q", hook)
		}
		r, err := e.runtime.RunTrigger(ctx, script, world, ir.TriggerContext{HookPoint: hook, Object: *req.Object})
		if err != nil {
			return out, err
		}
		out.Rejected = r.Rejected
		if r.Rejected {
			reason := ir.DefaultRejectReason
			if r.Reason != nil {
				reason = *r.Reason
			}
			out.Reason = &reason
		}
		out.Mutations = r.Mutations

	case ir.ScriptLayout:
		r, err := e.runtime.RunLayout(ctx, script, world, *req.Object)
		if err != nil {
			return out, err
		}
		out.Value = &r.Value

	case ir.ScriptAction:
		r, err := e.runtime.RunAction(ctx, script, world)
		if err != nil {
			return out, err
		}
		out.Output = r.Output
		out.Mutations = r.Mutations

	default:
		return out, ir.BadRequest("unknown script type %q", script.Type)
	}
	return out, nil
}

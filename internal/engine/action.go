package engine

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// RunAction runs an action script over a snapshot of its module.
// The returned mutations are not applied.
func (e *Engine) RunAction(ctx context.Context, cat Catalog, script ir.Script) (ir.ActionResult, error) {
	if script.Type != ir.ScriptAction {
		return ir.ActionResult{}, ir.BadRequest("only action scripts can be executed; '%s' is a %s script", script.Name, script.Type)
	}
	world, err := cat.World(ctx, script.ModuleID)
	if err != nil {
		return ir.ActionResult{}, fmt.Errorf("build script world: %w", err)
	}
	result, err := e.runtime.RunAction(ctx, script, world)
	if err != nil {
		return ir.ActionResult{}, err
	}
	e.logger.Debug("action finished", "script", script.Name, "output_lines", len(result.Output), "mutations", len(result.Mutations))
	return result, nil
}

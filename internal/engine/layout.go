package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/req1/internal/ir"
)

// LayoutCell is one computed value of a layout column.
type LayoutCell struct {
	ObjectID string `json:"object_id"`
	Value    string `json:"value"`
}

// RunLayout computes a layout script's text for one object of the module.
func (e *Engine) RunLayout(ctx context.Context, cat Catalog, script ir.Script, objectID string) (ir.LayoutResult, error) {
	if script.Type != ir.ScriptLayout {
		return ir.LayoutResult{}, ir.BadRequest("script '%s' is a %s script, not a layout script", script.Name, script.Type)
	}
	world, err := cat.World(ctx, script.ModuleID)
	if err != nil {
		return ir.LayoutResult{}, fmt.Errorf("build script world: %w", err)
	}
	obj, ok := world.Object(objectID)
	if !ok {
		return ir.LayoutResult{}, ir.NotFound("object %s not found in module", objectID)
	}
	return e.runtime.RunLayout(ctx, script, world, obj)
}

// LayoutColumn computes a layout script for every object of its module.
// Cells come back in snapshot order. The first failing object aborts the
// column and cancels the remaining runs.
func (e *Engine) LayoutColumn(ctx context.Context, cat Catalog, script ir.Script) ([]LayoutCell, error) {
	if script.Type != ir.ScriptLayout {
		return nil, ir.BadRequest("script '%s' is a %s script, not a layout script", script.Name, script.Type)
	}
	world, err := cat.World(ctx, script.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("build script world: %w", err)
	}

	cells := make([]LayoutCell, len(world.Objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, obj := range world.Objects {
		g.Go(func() error {
			result, err := e.runtime.RunLayout(gctx, script, world, obj)
			if err != nil {
				return fmt.Errorf("object %s: %w", obj.ID, err)
			}
			cells[i] = LayoutCell{ObjectID: obj.ID, Value: result.Value}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cells, nil
}

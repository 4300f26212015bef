package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
)

// World builds the script snapshot of a module: objects in level order
// (unplaced objects last), links in id order.
func (c conn) World(ctx context.Context, moduleID string) (*ir.ScriptWorld, error) {
	module, err := c.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	objects, err := c.ModuleObjects(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	links, err := c.ModuleLinks(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(objects, func(a, b ir.Object) int {
		if d := integrity.CompareLevels(a.Level, b.Level); d != 0 {
			return d
		}
		return cmp.Compare(a.ID, b.ID)
	})

	world := &ir.ScriptWorld{
		ModuleID:   module.ID,
		ModuleName: module.Name,
		Objects:    make([]ir.ObjectProjection, len(objects)),
		Links:      make([]ir.LinkProjection, len(links)),
	}
	for i := range objects {
		world.Objects[i] = objects[i].Projection()
	}
	for i := range links {
		world.Links[i] = links[i].Projection()
	}
	return world, nil
}

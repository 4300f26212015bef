package engine

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// TriggerReport is the outcome of a trigger pipeline that was not
// rejected.
type TriggerReport struct {
	// Scripts lists the scripts that ran, in run order.
	Scripts []string

	// Mutations is the merged union of every script's mutations.
	Mutations []ir.Mutation
}

// RunTriggers runs the enabled trigger scripts of a module for one hook.
//
// The first rejection stops the pipeline with a VALIDATION_REJECTED error
// naming the script and reason; the first fault stops it with that fault.
// Nothing is applied here: the caller decides which mutations to honour.
func (e *Engine) RunTriggers(ctx context.Context, cat Catalog, moduleID string, hook ir.HookPoint, obj ir.ObjectProjection) (TriggerReport, error) {
	report := TriggerReport{Scripts: []string{}, Mutations: []ir.Mutation{}}

	scripts, err := cat.EnabledScripts(ctx, moduleID, ir.ScriptTrigger, hook)
	if err != nil {
		return report, fmt.Errorf("load %s triggers: %w", hook, err)
	}
	if len(scripts) == 0 {
		return report, nil
	}

	world, err := cat.World(ctx, moduleID)
	if err != nil {
		return report, fmt.Errorf("build script world: %w", err)
	}

	tc := ir.TriggerContext{HookPoint: hook, Object: obj}
	batches := make([][]ir.Mutation, 0, len(scripts))
	for _, s := range scripts {
		result, err := e.runtime.RunTrigger(ctx, s, world, tc)
		if err != nil {
			e.logger.Warn("trigger failed", "script", s.Name, "hook", hook, "object", obj.ID, "error", err)
			return TriggerReport{}, err
		}
		report.Scripts = append(report.Scripts, s.Name)
		if result.Rejected {
			reason := ir.DefaultRejectReason
			if result.Reason != nil {
				reason = *result.Reason
			}
			e.logger.Info("trigger rejected", "script", s.Name, "hook", hook, "object", obj.ID, "reason", reason)
			return TriggerReport{}, ir.Rejected(s.Name, reason)
		}
		batches = append(batches, result.Mutations)
	}

	report.Mutations = MergeMutations(batches...)
	return report, nil
}

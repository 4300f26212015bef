package engine

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

const noHeading = "(no heading)"

// Sweep runs every enabled validate trigger against every object of a
// module. Each rejection or fault becomes one error issue attributed to
// "script:<name>"; the sweep always visits every pair.
func (e *Engine) Sweep(ctx context.Context, cat Catalog, moduleID string) ([]ir.Issue, error) {
	issues := []ir.Issue{}

	scripts, err := cat.EnabledScripts(ctx, moduleID, ir.ScriptTrigger, ir.HookValidate)
	if err != nil {
		return nil, fmt.Errorf("load validate triggers: %w", err)
	}
	if len(scripts) == 0 {
		return issues, nil
	}

	world, err := cat.World(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("build script world: %w", err)
	}

	for _, obj := range world.Objects {
		tc := ir.TriggerContext{HookPoint: ir.HookValidate, Object: obj}
		for _, s := range scripts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := e.runtime.RunTrigger(ctx, s, world, tc)
			switch {
			case err != nil:
				issues = append(issues, ir.Issue{
					Rule:     "script:" + s.Name,
					Severity: ir.SeverityError,
					ObjectID: obj.ID,
					Message:  fmt.Sprintf("[%s] script '%s' error: %s", levelOf(obj), s.Name, faultText(err)),
				})
			case result.Rejected:
				reason := ir.DefaultRejectReason
				if result.Reason != nil {
					reason = *result.Reason
				}
				issues = append(issues, ir.Issue{
					Rule:     "script:" + s.Name,
					Severity: ir.SeverityError,
					ObjectID: obj.ID,
					Message:  fmt.Sprintf("[%s] %s: %s", levelOf(obj), HeadingOf(obj.Heading), reason),
				})
			}
		}
	}

	e.logger.Debug("validation sweep finished", "module", moduleID, "scripts", len(scripts), "objects", len(world.Objects), "issues", len(issues))
	return issues, nil
}

// HeadingOf returns the heading text used in issue messages.
func HeadingOf(heading *string) string {
	if heading == nil {
		return noHeading
	}
	return *heading
}

func levelOf(obj ir.ObjectProjection) string {
	if obj.Level == nil {
		return ""
	}
	return *obj.Level
}

// faultText is the guest's own error text when available.
func faultText(err error) string {
	if e, ok := ir.AsError(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

package service

import (
	"context"
	"strings"

	"github.com/roach88/req1/internal/engine"
	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/store"
)

// ScriptInput describes a new script. Enabled nil means enabled.
type ScriptInput struct {
	ModuleID string        `json:"module_id" yaml:"module_id"`
	Name     string        `json:"name" yaml:"name"`
	Type     ir.ScriptType `json:"type" yaml:"type"`
	Hook     ir.HookPoint  `json:"hook_point,omitempty" yaml:"hook_point"`
	Source   string        `json:"source" yaml:"source"`
	Enabled  *bool         `json:"enabled,omitempty" yaml:"enabled"`
}

// ScriptUpdate lists the script fields to change. Nil fields are kept.
type ScriptUpdate struct {
	Name    *string        `json:"name,omitempty"`
	Type    *ir.ScriptType `json:"type,omitempty"`
	Hook    *ir.HookPoint  `json:"hook_point,omitempty"`
	Source  *string        `json:"source,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
}

// ScriptTest selects the object a script is tested against: a stored
// object by id, or an ad-hoc projection.
type ScriptTest struct {
	ObjectID string               `json:"object_id,omitempty"`
	Object   *ir.ObjectProjection `json:"object,omitempty"`
	Hook     ir.HookPoint         `json:"hook_point,omitempty"`
}

// ActionOutcome is the result of an action run. Applied counts the
// objects written; it stays 0 for a dry execution.
type ActionOutcome struct {
	Output       []string      `json:"output"`
	Mutations    []ir.Mutation `json:"mutations"`
	Applied      int           `json:"applied"`
	FlaggedLinks []string      `json:"flagged_links"`
}

// CreateScript stores a script after the module's existing scripts.
func (s *Service) CreateScript(ctx context.Context, in ScriptInput) (ir.Script, error) {
	if _, err := s.store.GetModule(ctx, in.ModuleID); err != nil {
		return ir.Script{}, err
	}
	sc := ir.Script{
		ID:       s.ids.Generate(),
		ModuleID: in.ModuleID,
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Hook:     in.Hook,
		Source:   in.Source,
		Enabled:  in.Enabled == nil || *in.Enabled,
	}
	if err := checkScript(&sc); err != nil {
		return ir.Script{}, err
	}
	seq, err := s.store.InsertScript(ctx, sc)
	if err != nil {
		return ir.Script{}, err
	}
	sc.Seq = seq
	s.logger.Info("script created", "script", sc.Name, "type", sc.Type, "hook", sc.Hook, "module", sc.ModuleID)
	return sc, nil
}

// UpdateScript changes a script. Declaration order is kept.
func (s *Service) UpdateScript(ctx context.Context, id string, in ScriptUpdate) (ir.Script, error) {
	sc, err := s.store.GetScript(ctx, id)
	if err != nil {
		return ir.Script{}, err
	}
	if in.Name != nil {
		sc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		sc.Type = *in.Type
		if sc.Type != ir.ScriptTrigger {
			sc.Hook = ""
		}
	}
	if in.Hook != nil {
		sc.Hook = *in.Hook
	}
	if in.Source != nil {
		sc.Source = *in.Source
	}
	if in.Enabled != nil {
		sc.Enabled = *in.Enabled
	}
	if err := checkScript(&sc); err != nil {
		return ir.Script{}, err
	}
	if err := s.store.UpdateScript(ctx, sc); err != nil {
		return ir.Script{}, err
	}
	return sc, nil
}

// DeleteScript removes a script.
func (s *Service) DeleteScript(ctx context.Context, id string) error {
	return s.store.DeleteScript(ctx, id)
}

// GetScript returns a script by id.
func (s *Service) GetScript(ctx context.Context, id string) (ir.Script, error) {
	return s.store.GetScript(ctx, id)
}

// ScriptByName returns a module's script by name.
func (s *Service) ScriptByName(ctx context.Context, moduleID, name string) (ir.Script, error) {
	return s.store.ScriptByName(ctx, moduleID, name)
}

// ListScripts returns a module's scripts in declaration order.
func (s *Service) ListScripts(ctx context.Context, moduleID string) ([]ir.Script, error) {
	return s.store.ListScripts(ctx, moduleID)
}

// TestScript runs a script without applying anything. Disabled scripts
// can be tested.
func (s *Service) TestScript(ctx context.Context, id string, in ScriptTest) (engine.DryRunResult, error) {
	sc, err := s.store.GetScript(ctx, id)
	if err != nil {
		return engine.DryRunResult{}, err
	}
	req := engine.DryRunRequest{Object: in.Object, Hook: in.Hook}
	if in.ObjectID != "" {
		obj, err := s.store.GetObject(ctx, in.ObjectID)
		if err != nil {
			return engine.DryRunResult{}, err
		}
		p := obj.Projection()
		req.Object = &p
	}
	return s.engine.DryRun(ctx, s.store, sc, req)
}

// Layout computes a layout script for one object.
func (s *Service) Layout(ctx context.Context, scriptID, objectID string) (ir.LayoutResult, error) {
	sc, err := s.store.GetScript(ctx, scriptID)
	if err != nil {
		return ir.LayoutResult{}, err
	}
	return s.engine.RunLayout(ctx, s.store, sc, objectID)
}

// LayoutColumn computes a layout script for every object of its module.
func (s *Service) LayoutColumn(ctx context.Context, scriptID string) ([]engine.LayoutCell, error) {
	sc, err := s.store.GetScript(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	return s.engine.LayoutColumn(ctx, s.store, sc)
}

// ExecuteAction runs an action script. With apply its mutations are
// written in one transaction: every touched object gets a new version, a
// fresh fingerprint and a "script" history row, and its links are checked
// for suspicion. Triggers do not run for action writes.
func (s *Service) ExecuteAction(ctx context.Context, scriptID string, apply bool) (ActionOutcome, error) {
	sc, err := s.store.GetScript(ctx, scriptID)
	if err != nil {
		return ActionOutcome{}, err
	}
	if !apply {
		result, err := s.engine.RunAction(ctx, s.store, sc)
		if err != nil {
			return ActionOutcome{}, err
		}
		return ActionOutcome{Output: result.Output, Mutations: result.Mutations, FlaggedLinks: []string{}}, nil
	}

	var out ActionOutcome
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		result, err := s.engine.RunAction(ctx, tx, sc)
		if err != nil {
			return err
		}
		target := &actionTarget{tx: tx, flagged: []string{}}
		applied, err := integrity.ApplyMutations(ctx, target, result.Mutations)
		if err != nil {
			return err
		}
		out = ActionOutcome{
			Output:       result.Output,
			Mutations:    result.Mutations,
			Applied:      applied,
			FlaggedLinks: target.flagged,
		}
		return nil
	})
	if err != nil {
		return ActionOutcome{}, err
	}
	s.logger.Info("action applied", "script", sc.Name, "objects", out.Applied, "flagged_links", len(out.FlaggedLinks))
	return out, nil
}

// actionTarget writes action mutations as full object revisions.
type actionTarget struct {
	tx      *store.Tx
	flagged []string
}

func (t *actionTarget) Attributes(ctx context.Context, id string) (ir.IRObject, bool, error) {
	return t.tx.Attributes(ctx, id)
}

func (t *actionTarget) ReplaceAttributes(ctx context.Context, id string, attrs ir.IRObject) error {
	cur, err := t.tx.GetObject(ctx, id)
	if err != nil {
		return err
	}
	next := cur
	next.Attributes = attrs
	flagged, err := persist(ctx, t.tx, cur, &next, ir.ChangeScript, nil)
	if err != nil {
		return err
	}
	t.flagged = append(t.flagged, flagged...)
	return nil
}

// checkScript validates sc and drops a hook point on non-trigger scripts,
// where it has no meaning.
func checkScript(sc *ir.Script) error {
	if sc.Name == "" {
		return ir.BadRequest("script name is required")
	}
	if !sc.Type.Valid() {
		return ir.BadRequest("invalid script type %q: must be trigger, layout or action", sc.Type)
	}
	if sc.Type == ir.ScriptTrigger {
		if sc.Hook == "" {
			return ir.BadRequest("trigger script '%s' needs a hook_point", sc.Name)
		}
		if !sc.Hook.Valid() {
			return ir.BadRequest("invalid hook_point %q", sc.Hook)
		}
	} else {
		sc.Hook = ""
	}
	if strings.TrimSpace(sc.Source) == "" {
		return ir.BadRequest("script '%s' has no source", sc.Name)
	}
	return nil
}

package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/req1/internal/engine"
	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/sandbox"
	"github.com/roach88/req1/internal/service"
	"github.com/roach88/req1/internal/store"
	"github.com/roach88/req1/internal/testutil"
)

// outcomeOK marks a step that succeeded.
const outcomeOK = "ok"

// Harness executes one scenario against its own service.
type Harness struct {
	svc   *service.Service
	names *Imported

	// Reverse lookups for reporting by key.
	objectKeys map[string]string
	linkKeys   map[string]string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential ids.
// An error is returned only when the scenario cannot be set up; failed
// steps and assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	backend := sandbox.Backend(scenario.Backend)
	if backend == "" {
		backend = sandbox.BackendJavaScript
	}
	sb, err := sandbox.New(sandbox.Options{Backend: backend, Logger: logger})
	if err != nil {
		return nil, err
	}
	eng := engine.New(sb, engine.WithLogger(logger), engine.WithLayoutWorkers(1))
	svc := service.New(st, eng, service.WithIDGenerator(testutil.NewSequentialIDs()), service.WithLogger(logger))

	names, err := scenario.Fixture.Import(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to import fixture: %w", err)
	}

	h := &Harness{
		svc:        svc,
		names:      names,
		objectKeys: invert(names.Objects),
		linkKeys:   invert(names.Links),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		detail, err := h.execute(ctx, step)
		outcome := outcomeOK
		if err != nil {
			outcome = ir.ErrorCode(err)
			if outcome == "" {
				outcome = "error"
			}
			detail = map[string]any{"error": err.Error()}
		}
		result.AddTrace(step.Op, stepTarget(step), outcome, detail)

		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
		case step.ExpectError != "" && outcome != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, step.ExpectError, outcome))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}

	state, err := h.state(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = state
	return result, nil
}

// execute runs one step and returns its trace detail.
func (h *Harness) execute(ctx context.Context, st Step) (map[string]any, error) {
	switch st.Op {
	case OpCreate:
		in := service.CreateObjectInput{
			ModuleID:       h.names.Module.ID,
			Position:       st.Position,
			Heading:        st.Heading,
			Body:           st.Body,
			Classification: st.Classification,
		}
		if st.Parent != "" {
			parent, err := h.object(st.Parent)
			if err != nil {
				return nil, err
			}
			in.ParentID = &parent
		}
		attrs, err := toAttributes(st.Attributes)
		if err != nil {
			return nil, err
		}
		in.Attributes = attrs
		res, err := h.svc.CreateObject(ctx, in)
		if err != nil {
			return nil, err
		}
		h.names.Objects[st.Key] = res.Object.ID
		h.objectKeys[res.Object.ID] = st.Key
		return h.saveDetail(res), nil

	case OpUpdate, OpReview:
		id, err := h.object(st.Object)
		if err != nil {
			return nil, err
		}
		in := service.UpdateObjectInput{
			Heading:        st.Heading,
			Body:           st.Body,
			Classification: st.Classification,
			MoveToRoot:     st.MoveToRoot,
			Position:       st.Position,
			Reviewed:       st.Reviewed,
		}
		if st.Op == OpReview {
			in.Reviewed = boolPtr(true)
		}
		if st.Parent != "" {
			parent, err := h.object(st.Parent)
			if err != nil {
				return nil, err
			}
			in.ParentID = &parent
		}
		if in.Attributes, err = toAttributes(st.Attributes); err != nil {
			return nil, err
		}
		res, err := h.svc.UpdateObject(ctx, id, in)
		if err != nil {
			return nil, err
		}
		return h.saveDetail(res), nil

	case OpDelete:
		id, err := h.object(st.Object)
		if err != nil {
			return nil, err
		}
		return nil, h.svc.DeleteObject(ctx, id)

	case OpLink:
		src, err := h.object(st.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := h.object(st.Target)
		if err != nil {
			return nil, err
		}
		typeID, err := ensureLinkType(ctx, h.svc, st.Type, "")
		if err != nil {
			return nil, err
		}
		link, err := h.svc.CreateLink(ctx, service.LinkInput{SourceID: src, TargetID: tgt, LinkTypeID: typeID})
		if err != nil {
			return nil, err
		}
		h.names.Links[st.Key] = link.ID
		h.linkKeys[link.ID] = st.Key
		return map[string]any{"suspect": link.Suspect}, nil

	case OpResolve:
		id, ok := h.names.Links[st.Link]
		if !ok {
			return nil, ir.BadRequest("unknown link key %q", st.Link)
		}
		link, err := h.svc.ResolveLink(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"suspect": link.Suspect}, nil

	case OpAction:
		id, ok := h.names.Scripts[st.Script]
		if !ok {
			return nil, ir.BadRequest("unknown script %q", st.Script)
		}
		out, err := h.svc.ExecuteAction(ctx, id, st.Apply)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"applied":   out.Applied,
			"mutations": len(out.Mutations),
			"output":    out.Output,
			"flagged":   h.linkNames(out.FlaggedLinks),
		}, nil

	case OpValidate:
		report, err := h.svc.ValidateModule(ctx, h.names.Module.ID)
		if err != nil {
			return nil, err
		}
		rules := make([]string, len(report.Issues))
		for i, is := range report.Issues {
			rules[i] = is.Rule
		}
		return map[string]any{"errors": report.Errors(), "rules": rules}, nil
	}
	return nil, ir.BadRequest("unknown op %q", st.Op)
}

func (h *Harness) saveDetail(res service.SaveResult) map[string]any {
	return map[string]any{
		"level":        res.Object.Level,
		"version":      res.Object.Version,
		"needs_review": res.Object.NeedsReview(),
		"flagged":      h.linkNames(res.FlaggedLinks),
		"dropped":      len(res.DroppedMutations),
	}
}

// state reads the module's final content.
func (h *Harness) state(ctx context.Context) (State, error) {
	out := State{Objects: []ObjectState{}, Links: []LinkState{}}

	objects, err := h.svc.Store().ModuleObjects(ctx, h.names.Module.ID)
	if err != nil {
		return out, err
	}
	slices.SortFunc(objects, func(a, b ir.Object) int {
		if c := integrity.CompareLevels(a.Level, b.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, o := range objects {
		out.Objects = append(out.Objects, ObjectState{
			Key:         h.objectName(o.ID),
			Level:       o.Level,
			Version:     o.Version,
			NeedsReview: o.NeedsReview(),
			Attributes:  o.Attributes,
		})
	}

	links, err := h.svc.ListLinks(ctx, h.names.Module.ID)
	if err != nil {
		return out, err
	}
	for _, l := range links {
		out.Links = append(out.Links, LinkState{
			Key:     h.linkName(l.ID),
			Source:  h.objectName(l.SourceID),
			Target:  h.objectName(l.TargetID),
			Suspect: l.Suspect,
		})
	}
	return out, nil
}

func (h *Harness) object(key string) (string, error) {
	id, ok := h.names.Objects[key]
	if !ok {
		return "", ir.BadRequest("unknown object key %q", key)
	}
	return id, nil
}

func (h *Harness) objectName(id string) string {
	if k, ok := h.objectKeys[id]; ok {
		return k
	}
	return id
}

func (h *Harness) linkName(id string) string {
	if k, ok := h.linkKeys[id]; ok {
		return k
	}
	return id
}

func (h *Harness) linkNames(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = h.linkName(id)
	}
	return out
}

func stepTarget(st Step) string {
	switch {
	case st.Object != "":
		return st.Object
	case st.Link != "":
		return st.Link
	case st.Script != "":
		return st.Script
	}
	return st.Key
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

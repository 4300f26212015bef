package sandbox

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/req1/internal/ir"
)

// hostState is the per-invocation arena shared between the host and one
// interpreter instance. Only the goroutine running the script touches it.
type hostState struct {
	kind   ir.ScriptType
	script string
	world  *ir.ScriptWorld
	tctx   *ir.TriggerContext
	obj    *ir.ObjectProjection

	mutations []ir.Mutation
	rejected  *string
	output    []string
	lines     int
	maxLines  int

	// fault is the first host-side fault raised while the script ran.
	// It takes precedence over whatever error the guest reports, so a
	// script that catches the thrown exception still fails.
	fault *ir.Error

	logger *slog.Logger
}

func newHostState(kind ir.ScriptType, script string, world *ir.ScriptWorld, maxLines int, logger *slog.Logger) *hostState {
	if world == nil {
		world = &ir.ScriptWorld{}
	}
	return &hostState{
		kind:     kind,
		script:   script,
		world:    world,
		maxLines: maxLines,
		logger:   logger,
	}
}

func (h *hostState) module() ir.IRObject {
	return ir.IRObject{
		"id":   ir.IRString(h.world.ModuleID),
		"name": ir.IRString(h.world.ModuleName),
	}
}

// context returns the trigger context, or nil outside trigger runs.
func (h *hostState) context() ir.IRValue {
	if h.tctx == nil {
		return nil
	}
	return h.tctx.Value()
}

// current returns the layout object, or nil outside layout runs.
func (h *hostState) current() ir.IRValue {
	if h.obj == nil {
		return nil
	}
	return h.obj.Value()
}

func (h *hostState) objects() ir.IRArray {
	out := make(ir.IRArray, len(h.world.Objects))
	for i, o := range h.world.Objects {
		out[i] = o.Value()
	}
	return out
}

func (h *hostState) getObject(id string) ir.IRValue {
	o, ok := h.world.Object(id)
	if !ok {
		return ir.IRNull{}
	}
	return o.Value()
}

func (h *hostState) links(id string) ir.IRArray {
	ls := h.world.LinksOf(id)
	out := make(ir.IRArray, len(ls))
	for i, l := range ls {
		out[i] = l.Value()
	}
	return out
}

// set buffers an attribute mutation. The id must parse as a UUID and name
// an object in the snapshot or the object being saved.
func (h *hostState) set(id, key string, value ir.IRValue) error {
	if _, err := uuid.Parse(id); err != nil {
		return h.raise(ir.ReferenceFault(id, fmt.Sprintf("invalid object id %q: %v", id, err)))
	}
	if !h.knows(id) {
		return h.raise(ir.ReferenceFault(id, fmt.Sprintf("object %s is not in the module snapshot", id)))
	}
	if h.kind == ir.ScriptLayout {
		h.logger.Debug("layout mutation discarded", "script", h.script, "object_id", id, "key", key)
		return nil
	}
	h.mutations = append(h.mutations, ir.Mutation{ObjectID: id, Key: key, Value: value})
	return nil
}

func (h *hostState) knows(id string) bool {
	if _, ok := h.world.Object(id); ok {
		return true
	}
	return h.tctx != nil && h.tctx.Object.ID == id
}

// reject records a rejection; the last call wins. Only trigger runs
// report it.
func (h *hostState) reject(reason *string) {
	r := ir.DefaultRejectReason
	if reason != nil {
		r = *reason
	}
	if h.kind != ir.ScriptTrigger {
		h.logger.Debug("rejection ignored", "script", h.script, "kind", h.kind, "reason", r)
		return
	}
	h.rejected = &r
}

func (h *hostState) log(msg string) error {
	if err := h.count(); err != nil {
		return err
	}
	h.logger.Info("script log", "script", h.script, "message", msg)
	return nil
}

// print captures user-visible output for actions; other kinds log it.
func (h *hostState) print(msg string) error {
	if h.kind != ir.ScriptAction {
		return h.log(msg)
	}
	if err := h.count(); err != nil {
		return err
	}
	h.output = append(h.output, msg)
	return nil
}

func (h *hostState) count() error {
	h.lines++
	if h.maxLines > 0 && h.lines > h.maxLines {
		return h.raise(&ir.Error{
			Code:    ir.ErrCodeScriptFault,
			Script:  h.script,
			Message: fmt.Sprintf("output limit of %d lines exceeded", h.maxLines),
		})
	}
	return nil
}

// raise records the first fault and returns it for the backend to throw.
func (h *hostState) raise(e *ir.Error) error {
	if h.fault == nil {
		h.fault = e
	}
	return e
}

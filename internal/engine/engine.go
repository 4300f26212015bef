package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/sandbox"
)

// Catalog is what the engine needs from storage.
// Implemented by store.Store and store.Tx.
type Catalog interface {
	// EnabledScripts returns enabled scripts of one type in declaration
	// order. hook filters trigger scripts and is ignored otherwise.
	EnabledScripts(ctx context.Context, moduleID string, typ ir.ScriptType, hook ir.HookPoint) ([]ir.Script, error)

	// World builds the read-only snapshot of a module.
	World(ctx context.Context, moduleID string) (*ir.ScriptWorld, error)
}

// DefaultLayoutWorkers bounds concurrent layout invocations per column.
const DefaultLayoutWorkers = 4

// Engine runs scripts for content operations.
// Safe for concurrent use: it holds no per-operation state.
type Engine struct {
	runtime sandbox.Runtime
	logger  *slog.Logger
	workers int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger for pipeline diagnostics.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLayoutWorkers sets the layout worker pool size.
// Values below 1 fall back to DefaultLayoutWorkers.
func WithLayoutWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// New creates an Engine on top of a script runtime.
func New(rt sandbox.Runtime, opts ...EngineOption) *Engine {
	e := &Engine{
		runtime: rt,
		logger:  slog.Default(),
		workers: DefaultLayoutWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Runtime returns the sandbox the engine runs scripts in.
func (e *Engine) Runtime() sandbox.Runtime {
	return e.runtime
}

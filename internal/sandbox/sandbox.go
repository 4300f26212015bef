package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/req1/internal/ir"
)

// Backend names a guest language implementation.
type Backend string

const (
	BackendJavaScript Backend = "javascript"
	BackendGo         Backend = "go"
)

// Defaults applied by New when Options leaves a field zero.
const (
	DefaultTimeout        = 2 * time.Second
	DefaultMaxOutputLines = 1000
)

// Runtime runs one script per call in an isolated interpreter.
// Implementations must be safe for concurrent use by independent calls.
type Runtime interface {
	Backend() Backend
	RunTrigger(ctx context.Context, script ir.Script, world *ir.ScriptWorld, tc ir.TriggerContext) (ir.TriggerResult, error)
	RunLayout(ctx context.Context, script ir.Script, world *ir.ScriptWorld, obj ir.ObjectProjection) (ir.LayoutResult, error)
	RunAction(ctx context.Context, script ir.Script, world *ir.ScriptWorld) (ir.ActionResult, error)
}

// Options configures a Sandbox.
type Options struct {
	Backend Backend

	// Timeout bounds the wall-clock time of one invocation.
	Timeout time.Duration

	// MaxOutputLines caps log and print calls per invocation. Negative
	// disables the cap.
	MaxOutputLines int

	Logger *slog.Logger
}

// executor is a guest language backend. exec evaluates src against the
// arena and returns the value of the final expression (nil when none).
type executor interface {
	exec(ctx context.Context, src string, st *hostState) (ir.IRValue, error)
}

// Sandbox is the Runtime implementation shared by both backends.
type Sandbox struct {
	backend  Backend
	exec     executor
	timeout  time.Duration
	maxLines int
	logger   *slog.Logger
}

// New creates a Sandbox for the configured backend.
func New(opts Options) (*Sandbox, error) {
	s := &Sandbox{
		backend:  opts.Backend,
		timeout:  opts.Timeout,
		maxLines: opts.MaxOutputLines,
		logger:   opts.Logger,
	}
	if s.backend == "" {
		s.backend = BackendJavaScript
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxLines == 0 {
		s.maxLines = DefaultMaxOutputLines
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	switch s.backend {
	case BackendJavaScript:
		s.exec = jsExecutor{}
	case BackendGo:
		s.exec = goExecutor{}
	default:
		return nil, fmt.Errorf("unknown scripting backend %q (want %q or %q)", opts.Backend, BackendJavaScript, BackendGo)
	}
	return s, nil
}

// Backend returns the configured guest language.
func (s *Sandbox) Backend() Backend {
	return s.backend
}

// RunTrigger runs a trigger script with the hook context bound.
func (s *Sandbox) RunTrigger(ctx context.Context, script ir.Script, world *ir.ScriptWorld, tc ir.TriggerContext) (ir.TriggerResult, error) {
	st := newHostState(ir.ScriptTrigger, script.Name, world, s.maxLines, s.logger)
	st.tctx = &tc

	if _, err := s.run(ctx, script, st); err != nil {
		return ir.TriggerResult{}, err
	}
	return ir.TriggerResult{
		Rejected:  st.rejected != nil,
		Reason:    st.rejected,
		Mutations: nonNil(st.mutations),
	}, nil
}

// RunLayout runs a layout script with obj bound and coerces its final
// value to text. Mutations the script requests are dropped.
func (s *Sandbox) RunLayout(ctx context.Context, script ir.Script, world *ir.ScriptWorld, obj ir.ObjectProjection) (ir.LayoutResult, error) {
	st := newHostState(ir.ScriptLayout, script.Name, world, s.maxLines, s.logger)
	st.obj = &obj

	v, err := s.run(ctx, script, st)
	if err != nil {
		return ir.LayoutResult{}, err
	}
	return ir.LayoutResult{Value: ir.Text(v)}, nil
}

// RunAction runs an action script over the whole snapshot.
func (s *Sandbox) RunAction(ctx context.Context, script ir.Script, world *ir.ScriptWorld) (ir.ActionResult, error) {
	st := newHostState(ir.ScriptAction, script.Name, world, s.maxLines, s.logger)

	if _, err := s.run(ctx, script, st); err != nil {
		return ir.ActionResult{}, err
	}
	output := st.output
	if output == nil {
		output = []string{}
	}
	return ir.ActionResult{Output: output, Mutations: nonNil(st.mutations)}, nil
}

func (s *Sandbox) run(ctx context.Context, script ir.Script, st *hostState) (v ir.IRValue, err error) {
	if err := ctx.Err(); err != nil {
		return nil, ir.ScriptFault(script.Name, fmt.Errorf("not started: %w", err))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = ir.HostStateFault(fmt.Sprintf("panic while running script: %v", r), nil)
			}
		}()
		v, err = s.exec.exec(ctx, script.Source, st)
	}()

	s.logger.Debug("script finished",
		"script", script.Name,
		"kind", st.kind,
		"backend", s.backend,
		"elapsed", time.Since(start),
		"mutations", len(st.mutations))

	if st.fault != nil {
		return nil, st.fault.WithScript(script.Name)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ir.ScriptFault(script.Name, fmt.Errorf("interrupted after %s (budget %s): %w",
				time.Since(start).Round(time.Millisecond), s.timeout, ctxErr))
		}
		if e, ok := ir.AsError(err); ok {
			return nil, e.WithScript(script.Name)
		}
		return nil, ir.ScriptFault(script.Name, err)
	}
	return v, nil
}

func nonNil(m []ir.Mutation) []ir.Mutation {
	if m == nil {
		return []ir.Mutation{}
	}
	return m
}

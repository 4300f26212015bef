// Package config loads req1 configuration from CUE.
//
// A config file is unified with the embedded #Config schema, which supplies
// defaults and constraints, then decoded into Config. Unknown fields are
// errors because #Config is closed.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/req1/internal/sandbox"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded req1 configuration.
type Config struct {
	Database  string    `json:"database"`
	Scripting Scripting `json:"scripting"`
	Log       Log       `json:"log"`
}

// Scripting configures the script sandbox and orchestrator.
type Scripting struct {
	Backend        string `json:"backend"`
	TimeoutMS      int    `json:"timeout_ms"`
	MaxOutputLines int    `json:"max_output_lines"`
	LayoutWorkers  int    `json:"layout_workers"`
}

// Log configures diagnostics.
type Log struct {
	Level string `json:"level"`
}

// Timeout returns the per-invocation script budget.
func (s Scripting) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// SandboxOptions maps the scripting section onto sandbox options.
func (s Scripting) SandboxOptions(logger *slog.Logger) sandbox.Options {
	return sandbox.Options{
		Backend:        sandbox.Backend(s.Backend),
		Timeout:        s.Timeout(),
		MaxOutputLines: s.MaxOutputLines,
		Logger:         logger,
	}
}

// SlogLevel returns the configured log level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Error reports an invalid configuration with its CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration an empty file produces.
func Default() Config {
	cfg, err := Parse("", nil)
	if err != nil {
		// The embedded schema always has concrete defaults.
		panic(fmt.Sprintf("config: default configuration: %v", err))
	}
	return cfg
}

// Load reads and validates a CUE config file. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates CUE source against the schema and decodes it.
// filename is only used in error positions.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def
	if len(data) > 0 {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, formatCUEError(err)
		}
		v = def.Unify(user)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// formatCUEError keeps the first error of a CUE error list together with
// its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "config"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	format, args := first.Msg()
	e := &Error{Field: field, Message: fmt.Sprintf(format, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/sandbox"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "req1.db", cfg.Database)
	assert.Equal(t, "javascript", cfg.Scripting.Backend)
	assert.Equal(t, 2*time.Second, cfg.Scripting.Timeout())
	assert.Equal(t, 1000, cfg.Scripting.MaxOutputLines)
	assert.Equal(t, 4, cfg.Scripting.LayoutWorkers)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestParse_Overrides(t *testing.T) {
	src := `
database: "/var/lib/req1/main.db"
scripting: {
	backend:          "go"
	timeout_ms:       250
	max_output_lines: -1
}
log: level: "debug"
`
	cfg, err := Parse("req1.cue", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/req1/main.db", cfg.Database)
	assert.Equal(t, 4, cfg.Scripting.LayoutWorkers, "unset fields keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())

	opts := cfg.Scripting.SandboxOptions(nil)
	assert.Equal(t, sandbox.BackendGo, opts.Backend)
	assert.Equal(t, 250*time.Millisecond, opts.Timeout)
	assert.Equal(t, -1, opts.MaxOutputLines)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown backend", `scripting: backend: "lua"`},
		{"zero timeout", `scripting: timeout_ms: 0`},
		{"too many workers", `scripting: layout_workers: 1000`},
		{"unknown field", `colour: "blue"`},
		{"empty database", `database: ""`},
		{"bad level", `log: level: "trace"`},
		{"syntax", `scripting: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("req1.cue", []byte(tt.src))
			require.Error(t, err)
			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.cue"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, "req1.cue")
	require.NoError(t, os.WriteFile(path, []byte(`database: "other.db"`), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.Database)

	require.NoError(t, os.WriteFile(path, []byte(`scripting: workers: 2`), 0o644))
	_, err = Load(path)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env is a scratch database plus a config path that does not exist, so
// every command runs on the default configuration.
type env struct {
	db     string
	config string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{db: filepath.Join(dir, "req1.db"), config: filepath.Join(dir, "req1.cue")}
}

// run executes the root command and returns stdout.
func (e env) run(args ...string) (string, error) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--db", e.db, "--config", e.config))
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes a command with --format json and decodes the envelope.
func (e env) runJSON(t *testing.T, target any, args ...string) (CLIResponse, error) {
	t.Helper()
	out, err := e.run(append(args, "--format", "json")...)

	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if target != nil && raw.Data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, target))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}, err
}

// imported loads the test fixture and returns the import payload.
func (e env) imported(t *testing.T) ImportResult {
	t.Helper()
	var res ImportResult
	resp, err := e.runJSON(t, &res, "import", filepath.Join("testdata", "srs.yaml"))
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	return res
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "req1", cmd.Use)
	assert.Contains(t, cmd.Long, "traceability")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "import", "objects", "validate", "action", "layout", "resolve", "history", "test"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "req1.cue", cfg.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := newEnv(t).run("init", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

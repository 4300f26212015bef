package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
	Golden string // golden snapshot directory
	Update bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run YAML scenarios, each against a fresh in-memory database with
deterministic ids. With --golden, each scenario's trace and final state
are compared against <golden>/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  req1 test ./scenarios
  req1 test ./scenarios --filter "suspect_*"
  req1 test ./scenarios --golden ./golden --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden snapshot directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return f.Fail(NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir)))
	}
	if opts.Update && opts.Golden == "" {
		return f.Fail(NewExitError(ExitCommandError, "--update requires --golden"))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "failed to find scenarios", err))
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(cmd.Context(), file, opts)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	err = f.Success(result, func(w io.Writer) {
		if result.Total == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return
		}
		for _, sr := range result.Scenarios {
			if sr.Pass {
				fmt.Fprintf(w, "%s %s\n", styles.ok.Render("✓"), sr.Name)
				continue
			}
			fmt.Fprintf(w, "%s %s\n", styles.fail.Render("✗"), sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
			}
		}
		fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	})
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d scenarios failed", result.Failed), Reported: true}
	}
	return nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file and checks its golden snapshot.
func runScenario(ctx context.Context, file string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(ctx, scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if opts.Golden == "" {
		return sr
	}
	if err := checkGolden(opts, scenario.Name, result); err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
	}
	return sr
}

// checkGolden compares (or with --update writes) a scenario's snapshot.
func checkGolden(opts *TestOptions, name string, result *harness.Result) error {
	snap := harness.Snapshot{ScenarioName: name, Result: result}
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	path := filepath.Join(opts.Golden, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("snapshot differs from %s", path)
	}
	return nil
}

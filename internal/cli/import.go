package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/harness"
	"github.com/roach88/req1/internal/ir"
)

// ImportResult is the import command payload.
type ImportResult struct {
	Module  ir.Module         `json:"module"`
	Objects map[string]string `json:"objects"`
	Links   map[string]string `json:"links"`
	Scripts map[string]string `json:"scripts"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Import a module from a YAML fixture",
		Long: `Create a module with its link types, object tree, links and scripts
from a YAML fixture, the same format test scenarios use.

Scripts are installed after the content, so they do not run during the
import. Keys map to the ids of the created entities.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	fixture, err := harness.LoadFixture(path)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "failed to load fixture", err))
	}

	a, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	defer a.Close()

	imported, err := fixture.Import(cmd.Context(), a.svc)
	if err != nil {
		return f.Fail(err)
	}

	result := ImportResult{
		Module:  imported.Module,
		Objects: imported.Objects,
		Links:   imported.Links,
		Scripts: imported.Scripts,
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s imported module %s %s\n", styles.ok.Render("✓"), result.Module.Name, styles.dim.Render(result.Module.ID))
		fmt.Fprintf(w, "  %d keyed objects, %d keyed links, %d scripts\n", len(result.Objects), len(result.Links), len(result.Scripts))
	})
}

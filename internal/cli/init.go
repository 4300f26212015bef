package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/service"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Module service.ModuleInput
}

// InitResult is the init command payload.
type InitResult struct {
	Database      string     `json:"database"`
	SchemaVersion int        `json:"schema_version"`
	HostVersion   string     `json:"host_version"`
	Backend       string     `json:"backend"`
	Module        *ir.Module `json:"module,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade a req1 database",
		Long: `Create the SQLite database (or verify an existing one) and optionally
create a first module.

Example:
  req1 init --db ./srs.db --module "System Requirements" --required owner`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module.Name, "module", "", "create a module with this name")
	cmd.Flags().StringVar(&opts.Module.Prefix, "prefix", "", "module identifier prefix")
	cmd.Flags().StringVar(&opts.Module.DefaultClassification, "classification", "", "default classification of new objects")
	cmd.Flags().StringSliceVar(&opts.Module.RequiredAttributes, "required", nil, "attributes every object must carry")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	a, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	defer a.Close()

	result := InitResult{
		Database:      a.cfg.Database,
		SchemaVersion: ir.SchemaVersion,
		HostVersion:   ir.HostVersion,
		Backend:       string(a.engine.Runtime().Backend()),
	}
	if opts.Module.Name != "" {
		mod, err := a.svc.CreateModule(cmd.Context(), opts.Module)
		if err != nil {
			return f.Fail(err)
		}
		result.Module = &mod
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (schema v%d, %s, %s scripts)\n", styles.ok.Render("✓"), result.Database, result.SchemaVersion, result.HostVersion, result.Backend)
		if result.Module != nil {
			fmt.Fprintf(w, "  module %s %s\n", result.Module.Name, styles.dim.Render(result.Module.ID))
		}
	})
}

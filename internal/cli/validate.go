package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a module",
		Long: `Check a module against the built-in rules (missing headings and bodies,
unreviewed content, orphans, suspect and dangling links, required
attributes) and run its validate triggers over every object.

Exit codes:
  0 - No error-severity issues
  1 - One or more error-severity issues
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, module, cmd)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "module name (optional with a single module)")
	return cmd
}

func runValidate(opts *RootOptions, module string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	a, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	defer a.Close()

	mod, err := a.module(cmd.Context(), module)
	if err != nil {
		return f.Fail(err)
	}
	report, err := a.svc.ValidateModule(cmd.Context(), mod.ID)
	if err != nil {
		return f.Fail(err)
	}

	err = f.Success(report, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", styles.title.Render(mod.Name),
			styles.dim.Render(fmt.Sprintf("%d objects, %d links", report.ObjectCount, report.LinkCount)))
		for _, is := range report.Issues {
			fmt.Fprintf(w, "  %s %s %s\n", severityStyle(is.Severity).Render(string(is.Severity)), styles.dim.Render(is.Rule), is.Message)
		}
		if len(report.Issues) == 0 {
			fmt.Fprintf(w, "%s No issues\n", styles.ok.Render("✓"))
		}
	})
	if err != nil {
		return err
	}
	if n := report.Errors(); n > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d validation errors", n), Reported: true}
	}
	return nil
}

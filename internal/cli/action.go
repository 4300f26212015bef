package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ActionOptions holds flags for the action command.
type ActionOptions struct {
	*RootOptions
	Module string
	Apply  bool
}

// NewActionCommand creates the action command.
func NewActionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "action <script>",
		Short: "Run an action script",
		Long: `Run an action script over the module. Without --apply the script's
attribute writes are only reported. With --apply they are written in one
transaction; changed objects get a new version and their links turn
suspect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "module name (optional with a single module)")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "write the script's mutations")
	return cmd
}

func runAction(opts *ActionOptions, name string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	a, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	defer a.Close()

	sc, err := a.script(cmd.Context(), opts.Module, name)
	if err != nil {
		return f.Fail(err)
	}
	out, err := a.svc.ExecuteAction(cmd.Context(), sc.ID, opts.Apply)
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(out, func(w io.Writer) {
		for _, line := range out.Output {
			fmt.Fprintln(w, line)
		}
		if !opts.Apply {
			fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("%d mutations (dry run, use --apply to write)", len(out.Mutations))))
			return
		}
		fmt.Fprintf(w, "%s %d objects updated, %d links flagged suspect\n", styles.ok.Render("✓"), out.Applied, len(out.FlaggedLinks))
	})
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/engine"
)

// LayoutOptions holds flags for the layout command.
type LayoutOptions struct {
	*RootOptions
	Module string
	Object string
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LayoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "layout <script>",
		Short: "Compute a layout column",
		Long: `Evaluate a layout script for every object of the module, or for one
object with --object. Layout scripts are read-only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "module name (optional with a single module)")
	cmd.Flags().StringVar(&opts.Object, "object", "", "only this object id")
	return cmd
}

func runLayout(opts *LayoutOptions, name string, cmd *cobra.Command) error {
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

	var cells []engine.LayoutCell
	if opts.Object != "" {
		res, err := a.svc.Layout(cmd.Context(), sc.ID, opts.Object)
		if err != nil {
			return f.Fail(err)
		}
		cells = []engine.LayoutCell{{ObjectID: opts.Object, Value: res.Value}}
	} else if cells, err = a.svc.LayoutColumn(cmd.Context(), sc.ID); err != nil {
		return f.Fail(err)
	}

	return f.Success(cells, func(w io.Writer) {
		for _, c := range cells {
			fmt.Fprintf(w, "%s  %s\n", styles.dim.Render(c.ObjectID), c.Value)
		}
	})
}

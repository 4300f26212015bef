package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <link-id>",
		Short: "Clear a suspect link",
		Long: `Mark a link as reviewed: its stored fingerprints are refreshed from the
current content of both endpoints and the suspect flag is cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			link, err := a.svc.ResolveLink(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(link, func(w io.Writer) {
				fmt.Fprintf(w, "%s link %s resolved\n", styles.ok.Render("✓"), link.ID)
			})
		},
	}
}

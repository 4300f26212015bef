package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <object-id>",
		Short: "Show the change history of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			entries, err := a.svc.History(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(entries, func(w io.Writer) {
				for _, e := range entries {
					heading := ""
					if e.Heading != nil {
						heading = *e.Heading
					}
					fmt.Fprintf(w, "v%-4d %-7s %s  %s\n", e.Version, e.ChangeType, styles.dim.Render(e.Fingerprint[:min(12, len(e.Fingerprint))]), heading)
				}
			})
		},
	}
}

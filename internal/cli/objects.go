package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
)

// ObjectsOptions holds flags for the objects command.
type ObjectsOptions struct {
	*RootOptions
	Module      string
	Filter      queryir.ObjectFilter
	NeedsReview bool
	Reviewed    bool
	Attributes  []string
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ObjectsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List the objects of a module",
		Long: `List objects with optional filters. Attribute filters take key=value;
values are parsed as JSON when possible and as text otherwise.

Examples:
  req1 objects --module SRS --needs-review
  req1 objects --module SRS --search brake --sort level
  req1 objects --module SRS --attr asil=\"B\" --attr reviewed=true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjects(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "module name (optional with a single module)")
	cmd.Flags().StringVar(&opts.Filter.Classification, "classification", "", "only objects of this classification")
	cmd.Flags().BoolVar(&opts.NeedsReview, "needs-review", false, "only objects whose content is unreviewed")
	cmd.Flags().BoolVar(&opts.Reviewed, "reviewed", false, "only objects whose content is reviewed")
	cmd.Flags().StringVar(&opts.Filter.Search, "search", "", "text contained in heading or body")
	cmd.Flags().StringArrayVar(&opts.Attributes, "attr", nil, "attribute equality filter key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Filter.SortBy, "sort", "", "sort by position|heading|level|version")
	cmd.Flags().BoolVar(&opts.Filter.SortDesc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&opts.Filter.Offset, "offset", 0, "skip this many objects")
	cmd.Flags().IntVar(&opts.Filter.Limit, "limit", queryir.DefaultLimit, "page size")
	cmd.MarkFlagsMutuallyExclusive("needs-review", "reviewed")

	return cmd
}

func runObjects(opts *ObjectsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	filter := opts.Filter
	switch {
	case opts.NeedsReview:
		filter.NeedsReview = boolPtr(true)
	case opts.Reviewed:
		filter.NeedsReview = boolPtr(false)
	}
	attrs, err := parseAttributeFilters(opts.Attributes)
	if err != nil {
		return f.Fail(err)
	}
	filter.Attributes = attrs

	a, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	defer a.Close()

	mod, err := a.module(cmd.Context(), opts.Module)
	if err != nil {
		return f.Fail(err)
	}
	page, err := a.svc.ListObjects(cmd.Context(), mod.ID, filter)
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(page, func(w io.Writer) {
		fmt.Fprintln(w, styles.title.Render(mod.Name))
		for _, o := range page.Items {
			line := styles.level.Render(o.Level) + headingText(o)
			line += styles.dim.Render(fmt.Sprintf("  v%d", o.Version))
			if o.NeedsReview() {
				line += styles.warn.Render("  needs review")
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("%d-%d of %d", page.Offset+min(1, len(page.Items)), page.Offset+len(page.Items), page.Total)))
	})
}

// parseAttributeFilters turns key=value flags into an attribute map.
func parseAttributeFilters(flags []string) (ir.IRObject, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(ir.IRObject, len(flags))
	for _, fl := range flags {
		key, raw, ok := strings.Cut(fl, "=")
		if !ok || key == "" {
			return nil, ir.BadRequest("invalid attribute filter %q: want key=value", fl)
		}
		v, err := ir.ParseJSON([]byte(raw))
		if err != nil {
			v = ir.IRString(raw)
		}
		out[key] = v
	}
	return out, nil
}

func headingText(o ir.Object) string {
	if o.Heading == nil || *o.Heading == "" {
		return styles.dim.Render("(no heading)")
	}
	return *o.Heading
}

func boolPtr(b bool) *bool { return &b }

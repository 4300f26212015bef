package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/req1/internal/config"
	"github.com/roach88/req1/internal/engine"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/sandbox"
	"github.com/roach88/req1/internal/service"
	"github.com/roach88/req1/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides the config database path
	Config   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the req1 CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "req1",
		Short: "req1 - requirements management",
		Long: `Manage requirement modules: a hierarchy of objects with traceability
links, fingerprint-based suspect detection and user scripts that gate
saves, compute layout columns and run bulk actions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "req1.cue", "path to CUE config file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewObjectsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewActionCommand(opts))
	cmd.AddCommand(NewLayoutCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// app bundles what one command invocation needs.
type app struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
	svc    *service.Service
	logger *slog.Logger
}

// open loads the configuration, installs the logger and opens the
// database. The caller must Close the app.
func (o *RootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}

	level := cfg.Log.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	sb, err := sandbox.New(cfg.Scripting.SandboxOptions(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create script sandbox", err)
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	eng := engine.New(sb, engine.WithLogger(logger), engine.WithLayoutWorkers(cfg.Scripting.LayoutWorkers))
	return &app{
		cfg:    cfg,
		store:  st,
		engine: eng,
		svc:    service.New(st, eng, service.WithLogger(logger)),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// module resolves a module by name. An empty name selects the only module
// of the database.
func (a *app) module(ctx context.Context, name string) (ir.Module, error) {
	if name != "" {
		return a.svc.ModuleByName(ctx, name)
	}
	mods, err := a.svc.ListModules(ctx)
	if err != nil {
		return ir.Module{}, err
	}
	if len(mods) != 1 {
		return ir.Module{}, ir.BadRequest("--module is required when the database holds %d modules", len(mods))
	}
	return mods[0], nil
}

// script resolves a script of a module by name.
func (a *app) script(ctx context.Context, moduleName, name string) (ir.Script, error) {
	mod, err := a.module(ctx, moduleName)
	if err != nil {
		return ir.Script{}, err
	}
	return a.svc.ScriptByName(ctx, mod.ID, name)
}

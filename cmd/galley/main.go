package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/galley/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "galley: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	schemaPath string
	apiBase    string
	verbose    bool
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		SchemaPath: g.schemaPath,
		APIBase:    g.apiBase,
		Verbose:    g.verbose,
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "galley",
		Short: "Edit catering ledger grids from the terminal",
		Long: `galley opens the catering ledger's editable grids in a terminal UI.

Edits are tracked cell by cell against the last fetched rows; saving sends
only rows that changed, and within them only the changed cells plus the
columns the server needs to locate each row.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/galley/config.toml)")
	pf.StringVar(&flags.schemaPath, "schema", "", "grid definitions YAML (default built-in grids)")
	pf.StringVar(&flags.apiBase, "api", "", "ledger API base URL, overrides api_base")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newExportCmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newStatusCmd(flags),
		newGridsCmd(flags),
	)
	return root
}

// withEnv runs fn against a freshly set up environment.
func withEnv(cmd *cobra.Command, flags *globalFlags, fn func(env *app.Env) error) error {
	env, err := app.Setup(cmd.Context(), flags.options())
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	return fn(env)
}

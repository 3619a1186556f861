package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/galley/internal/app"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [grid...]",
		Short: "Write grids to an xlsx workbook",
		Long: `export fetches each named grid (all grids when none are named) with the
filter last applied in the UI and writes one sheet per grid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(env *app.Env) error {
				path := out
				if path == "" {
					name := fmt.Sprintf("galley-%s.xlsx", time.Now().Format("20060102-150405"))
					path = filepath.Join(env.Config.ExportDir(), name)
				}
				if err := env.Export(cmd.Context(), args, path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "workbook path (default <data_dir>/exports/galley-<time>.xlsx)")
	return cmd
}

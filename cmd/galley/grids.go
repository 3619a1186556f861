package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/galley/internal/schema"
)

func newGridsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "grids",
		Short: "List the configured grids and their key columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := schema.Load(flags.schemaPath)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tIDENTITY\tCARRY\tFILTERS")
			for _, def := range set.Grids {
				sc := def.Schema()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					def.Name,
					def.DisplayTitle(),
					joinOrDash(sc.IdentityFields()),
					joinOrDash(sc.CarryFields()),
					joinOrDash(def.FilterKeys()))
			}
			return tw.Flush()
		},
	}
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

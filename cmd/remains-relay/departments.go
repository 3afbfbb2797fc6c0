package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/spf13/cobra"
)

func newDepartmentsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "departments",
		Short: "List the known departments and their ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := departments.Default()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table.Map())
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, d := range table.List() {
				fmt.Fprintf(w, "%d\t%s\n", d.ID, d.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON object")
	return cmd
}

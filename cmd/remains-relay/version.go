package main

import (
	"fmt"

	"github.com/odl-optics/remains-relay/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "remains-relay %s\n", version.GitRelease)
			fmt.Fprintf(out, "  Go:     %s\n", version.GoInfo)
			fmt.Fprintf(out, "  Commit: %s\n", version.GitCommit)
			fmt.Fprintf(out, "  Date:   %s\n", version.BuildDate)
		},
	}
}

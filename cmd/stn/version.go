package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version of stn",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"bare": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stn %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

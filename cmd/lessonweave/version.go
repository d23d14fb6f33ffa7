package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lessonweave",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lessonweave version %s\n", strings.TrimSpace(lessonweave.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave/internal/cli"
)

var progressCmd = &cobra.Command{
	Use:   "progress <profile>",
	Short: "Show or reset the stored progress of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetString("reset")
		ctx := cmd.Context()

		rt, err := cli.NewRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		s := rt.Engine.Session(args[0])
		if reset != "" {
			if err := s.Reset(ctx, reset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress of %s in %s was reset.\n", args[0], reset)
			return nil
		}

		if _, err := s.Initialize(ctx); err != nil {
			return err
		}
		p, err := s.Progress(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.Flags().String("reset", "", "Module whose progress should be forgotten")
}

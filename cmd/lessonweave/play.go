package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave/internal/cli"
	"github.com/aretw0/lessonweave/internal/presentation/tui"
)

var playCmd = &cobra.Command{
	Use:   "play [dir]",
	Short: "Play the course interactively in the terminal",
	Long: `Starts a terminal session for one profile. Progress is kept in the configured
store, so a file, redis or sqlite store resumes where the profile left off.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		watch, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		c := cfg
		c.ContentDir = contentDir(cmd, args)
		rt, err := cli.NewRuntime(sigCtx, c, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		if watch {
			rt.WatchContent(sigCtx, func(moduleID string) {
				fmt.Fprintf(out, "\n>>> Change detected in '%s', course reloaded.\n", moduleID)
			})
		}
		if !quiet {
			tui.PrintBanner(out)
		}

		player := tui.NewPlayer(rt.Engine, profile, os.Stdin, out, tui.NewRenderer())
		err = player.Run(sigCtx)
		if errors.Is(err, context.Canceled) {
			logger.Info("session interrupted", "signal", sigCtx.Signal())
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("profile", "p", defaultProfile(), "Profile to play as")
	playCmd.Flags().BoolP("watch", "w", false, "Reload the course when content files change")
	playCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}

func defaultProfile() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

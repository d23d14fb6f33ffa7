package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave/internal/config"
	"github.com/aretw0/lessonweave/internal/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lessonweave",
	Short: "lessonweave is a dialogue and progression engine for self-paced lessons",
	Long: `lessonweave plays courses written as Markdown or YAML modules: dialogue trees,
tasks with validators and unlock requirements between modules.

Settings come from LESSONWEAVE_* environment variables and an optional .env file;
flags override them.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("dir", "", "Directory containing the course (LESSONWEAVE_CONTENT_DIR)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (LESSONWEAVE_LOG_LEVEL)")
	flags.String("store", "", "Progress store: memory, file, redis or sqlite (LESSONWEAVE_STORE)")
	flags.String("env-file", ".env", "Optional .env file to read settings from")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("dir"); v != "" {
		loaded.ContentDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		loaded.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		loaded.Store = v
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded
	logger = logging.New(logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	return nil
}

// contentDir returns the first positional argument when --dir was not given.
func contentDir(cmd *cobra.Command, args []string) string {
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		return args[0]
	}
	return cfg.ContentDir
}

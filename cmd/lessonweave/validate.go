package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the course for consistency",
	Long: `Loads every module and reports duplicate ids, dangling dialogue references,
unknown tasks and requirements pointing to modules that do not exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := lessonweave.New(contentDir(cmd, args), lessonweave.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to init engine: %w", err)
		}
		modules, err := eng.Modules(cmd.Context())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if err := validator.ValidateCatalog(modules); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d modules are valid! ✅\n", len(modules))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/presentation/graph"
	"github.com/aretw0/lessonweave/pkg/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph [module [tree]]",
	Short: "Export Mermaid diagrams of the course",
	Long: `Without arguments, prints the unlock dependencies between modules (graph LR).
With a module, prints every dialogue tree of that module (graph TD); with a tree,
only that one.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := lessonweave.New(cfg.ContentDir, lessonweave.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("error initializing lessonweave: %w", err)
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			modules, err := eng.Modules(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.GenerateCatalog(modules))
			return nil
		}

		m, err := eng.Module(ctx, args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			tree, ok := m.Dialogue(args[1])
			if !ok {
				return domain.Errorf(domain.CodeDialogueNotFound, map[string]string{"module": m.ID(), "tree": args[1]}, "dialogue not found: %s", args[1])
			}
			fmt.Fprint(out, graph.GenerateMermaid(tree, nil))
			return nil
		}

		ids := make([]string, 0, len(m.Dialogues))
		for id := range m.Dialogues {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "%%%% %s/%s\n", m.ID(), id)
			fmt.Fprint(out, graph.GenerateMermaid(m.Dialogues[id], nil))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

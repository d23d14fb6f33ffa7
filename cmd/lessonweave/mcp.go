package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave/internal/cli"
	"github.com/aretw0/lessonweave/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [dir]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the course as MCP tools so an agent can play it or supervise learners.

Supported transports:
- stdio (default): Standard Input/Output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		c := cfg
		c.ContentDir = contentDir(cmd, args)
		rt, err := cli.NewRuntime(sigCtx, c, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := mcp.NewServer(rt.Engine, logger)
		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("starting mcp server (stdio)")
			return srv.ServeStdio()
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			return srv.ServeSSE(sigCtx, addr, fmt.Sprintf("http://localhost:%d", port))
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().IntP("port", "p", 8081, "Port for the sse transport")
}

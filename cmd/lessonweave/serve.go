package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/lessonweave/internal/cli"
	httpAdapter "github.com/aretw0/lessonweave/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the HTTP server",
	Long: `Serves the course as a JSON API. Progress is kept per profile in the configured
store; /metrics exposes Prometheus counters when LESSONWEAVE_METRICS is on.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		watch, _ := cmd.Flags().GetBool("watch")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		c := cfg
		c.ContentDir = contentDir(cmd, args)
		rt, err := cli.NewRuntime(sigCtx, c, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		if watch {
			rt.WatchContent(sigCtx, nil)
		}

		opts := []httpAdapter.Option{httpAdapter.WithStreams(rt.Streams), httpAdapter.WithLogger(logger)}
		if rt.Metrics != nil {
			opts = append(opts, httpAdapter.WithMetrics(rt.Metrics))
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(rt.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "address", addr, "content", c.ContentDir, "store", c.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			logger.Info("shutting down", "signal", sigCtx.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (LESSONWEAVE_HTTP_ADDR)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the course when content files change")
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Configuration loaded",
				zap.String("env", cfg.Env),
				zap.String("base_url", cfg.BaseURL),
				zap.String("storage_driver", cfg.Storage.Driver),
				zap.String("storage_path", cfg.Storage.Path),
				zap.String("database_url", logging.SanitizeConnectionString(cfg.Storage.DatabaseURL)),
				zap.String("images_root", cfg.Images.Root),
				zap.Bool("mcp_enabled", cfg.MCP.Enabled),
			)

			ctx := cmd.Context()
			app, err := OpenApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("Failed to close document store", zap.Error(err))
				}
			}()

			server := &http.Server{
				Addr:              cfg.ListenAddr(),
				Handler:           app.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(ctx, server, logger)
		},
	}
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting immarkus-engine", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

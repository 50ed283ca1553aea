package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentictax/taxpilot/internal/advisor"
	"github.com/agentictax/taxpilot/internal/config"
	"github.com/agentictax/taxpilot/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the filing pipeline and advisor over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, store, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			completer, err := advisor.NewCompleter(config.LoadAdvisorConfig())
			if err != nil {
				return fmt.Errorf("failed to configure advisor: %w", err)
			}
			handler := server.NewHandler(orch, advisor.New(completer), config.AdvisorTimeout())

			srv := &http.Server{
				Addr:              config.ServerAddr(),
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				slog.Info("Shutting down HTTP server")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

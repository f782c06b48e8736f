package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruslano69/firvault/internal/api"
	"github.com/ruslano69/firvault/pkg/security"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		allowRoot bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := security.Guard(allowRoot); err != nil {
				return err
			}

			// Graceful shutdown on SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, inf, logger, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			if addr != "" {
				cfg.Server.Addr = addr
			}

			// Недоступная БД не мешает старту: пулы ленивые
			inf.DB.TestConnection(ctx)

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      api.NewRouter(inf, logger),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", cfg.Server.Addr).
					Bool("dev", opts.Dev).
					Str("mode", inf.DB.Mode().String()).
					Msg("firvault started")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			logger.Info().Msg("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("graceful shutdown error")
			}
			logger.Info().Msg("stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address override (e.g. :8080)")
	cmd.Flags().BoolVar(&allowRoot, "allow-root", false, "allow running the server as root/Administrator")
	return cmd
}

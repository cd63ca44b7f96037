package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/devserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(settings Settings) *cobra.Command {
	var (
		port      string
		secret    string
		noAuth    bool
		keepalive time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local PocketBase-compatible realtime server",
		Long: `Run a local realtime server that speaks the PocketBase /api/realtime protocol.
Record changes can be injected with the publish command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, devserver.Config{
				Port:              port,
				SecretKey:         secret,
				NoAuth:            noAuth,
				KeepaliveInterval: keepalive,
				Logger:            logger,
			})
		},
	}

	cmd.Flags().StringVar(&port, "port", strconv.Itoa(settings.DevPort), "Port to listen on")
	cmd.Flags().StringVar(&secret, "secret", settings.DevSecret, "HMAC secret for auth tokens")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "Accept subscription requests without a token")
	cmd.Flags().DurationVar(&keepalive, "keepalive", devserver.DefaultKeepaliveInterval, "Interval between keepalive comments")

	return cmd
}

func runServe(ctx context.Context, config devserver.Config) error {
	server := devserver.NewServer(config)
	if config.NoAuth {
		logger.Warn("authentication disabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("stopping dev server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("dev server shutdown failed: %w", err)
		}

		logger.Info("dev server stopped", zap.String("addr", server.Addr()))
		return nil
	})

	return g.Wait()
}

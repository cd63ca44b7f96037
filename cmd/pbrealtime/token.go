package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/devserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTokenCommand(settings Settings) *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an auth token accepted by the dev server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd.OutOrStdout(), secret, subject, ttl)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", settings.DevSecret, "HMAC secret shared with serve")
	cmd.Flags().StringVar(&subject, "subject", "dev-user", "Record id carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", devserver.DefaultTokenTTL, "Token lifetime")

	return cmd
}

func runToken(out io.Writer, secret, subject string, ttl time.Duration) error {
	tokenString, expiresAt, err := devserver.NewTokenIssuer(secret).GenerateToken(subject, ttl)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Fprintln(out, tokenString)
	logger.Debug("token minted", zap.String("subject", subject), zap.Time("expiresAt", expiresAt))
	return nil
}

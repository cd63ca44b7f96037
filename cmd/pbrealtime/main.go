package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/pocketbase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	serverURL   string
	token       string
	timeout     time.Duration
	logEncoding string

	logger = zap.NewNop()
)

func main() {
	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to parse settings from environment: %v\n", err)
		os.Exit(1)
	}

	rootCmd := newRootCommand(settings)
	err = rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(settings Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pbrealtime",
		Short: "PocketBase realtime command line interface",
		Long: `pbrealtime subscribes to PocketBase realtime record changes and runs a
local PocketBase-compatible realtime server for development.`,
		PersistentPreRunE: initializeLogger,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", settings.ServerURL, "PocketBase server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", settings.Token, "Auth token sent with subscription requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&logEncoding, "log-encoding", settings.LogEncoding, "Log encoding (console or json)")

	rootCmd.AddCommand(newSubscribeCommand())
	rootCmd.AddCommand(newServeCommand(settings))
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newTokenCommand(settings))

	return rootCmd
}

// initializeLogger builds the process logger from the global flags
func initializeLogger(cmd *cobra.Command, args []string) error {
	zapLogger, err := buildZapLogger(logEncoding)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = zapLogger
	return nil
}

// newClient creates a PocketBase client from the global flags
func newClient() (*pocketbase.Client, error) {
	client, err := pocketbase.NewClient(pocketbase.Config{
		ServerURL: serverURL,
		Token:     token,
		Timeout:   timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

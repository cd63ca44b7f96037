package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
	"github.com/spf13/cobra"
)

func newSubscribeCommand() *cobra.Command {
	var (
		collection   string
		recordID     string
		prettyFormat bool
	)

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe to record changes in real-time",
		Long: `Subscribe to changes of a collection, or of a single record with --record,
and print every event as it arrives. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSubscribe(ctx, cmd.OutOrStdout(), collection, recordID, prettyFormat)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Collection to subscribe to (required)")
	cmd.Flags().StringVar(&recordID, "record", "", "Record id (optional - whole collection if not specified)")
	cmd.Flags().BoolVar(&prettyFormat, "pretty", false, "Pretty print JSON data")
	if err := cmd.MarkFlagRequired("collection"); err != nil {
		panic(fmt.Sprintf("Failed to mark collection as required: %v", err))
	}

	return cmd
}

func runSubscribe(ctx context.Context, out io.Writer, collection, recordID string, prettyFormat bool) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	topic := realtime.ResolveTopic(collection, recordID)
	eventCount := 0
	handler := realtime.HandlerFunc(func(event sse.Event) {
		eventCount++
		printEvent(out, event, eventCount, prettyFormat)
	})

	if err := client.Subscribe(ctx, collection, recordID, handler); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	fmt.Fprintf(out, "Subscribed to %s on %s (client id %s)\n", topic, serverURL, client.ConnectionID())
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	<-ctx.Done()

	unsubscribeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Unsubscribe(unsubscribeCtx, collection, recordID); err != nil {
		fmt.Fprintf(out, "Warning: failed to unsubscribe: %v\n", err)
	}

	fmt.Fprintln(out, "Subscription stopped.")
	return nil
}

func printEvent(out io.Writer, event sse.Event, count int, pretty bool) {
	fmt.Fprintf(out, "Event #%d:\n", count)
	fmt.Fprintf(out, "   Topic: %s\n", event.Type)
	if event.ID != "" {
		fmt.Fprintf(out, "   ID: %s\n", event.ID)
	}

	if !pretty {
		fmt.Fprintf(out, "   Data: %s\n\n", event.Data)
		return
	}

	var data interface{}
	if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
		fmt.Fprintf(out, "   Data: %s\n\n", event.Data)
		return
	}
	jsonBytes, err := json.MarshalIndent(data, "         ", "  ")
	if err != nil {
		fmt.Fprintf(out, "   Data: %s\n\n", event.Data)
		return
	}
	fmt.Fprintf(out, "   Data: %s\n\n", jsonBytes)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/devserver"
	"github.com/spf13/cobra"
)

// publishPath is served by the dev server only
const publishPath = "/api/dev/publish"

func newPublishCommand() *cobra.Command {
	var (
		collection string
		recordID   string
		action     string
		data       string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a record change to a dev server",
		Long: `Publish a record change through a server started with the serve command.
Every client subscribed to the collection or to the record receives it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), cmd.OutOrStdout(), collection, recordID, action, data)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Collection of the record (required)")
	cmd.Flags().StringVar(&recordID, "record", "", "Record id")
	cmd.Flags().StringVar(&action, "action", "update", "Action name (create, update or delete)")
	cmd.Flags().StringVar(&data, "data", "{}", "Record as JSON")
	if err := cmd.MarkFlagRequired("collection"); err != nil {
		panic(fmt.Sprintf("Failed to mark collection as required: %v", err))
	}

	return cmd
}

func runPublish(ctx context.Context, out io.Writer, collection, recordID, action, data string) error {
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("invalid JSON data: %s", data)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := client.SendPost(ctx, publishPath, devserver.PublishRequest{
		Collection: collection,
		RecordID:   recordID,
		Action:     action,
		Record:     json.RawMessage(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	var resp devserver.PublishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Fprintf(out, "Published %s on %s, delivered %d event(s)\n", action, collection, resp.Delivered)
	return nil
}

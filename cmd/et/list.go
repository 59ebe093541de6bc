package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventtrace/internal/client"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List events with their match status",
	GroupID: "events",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		resp, err := apiClient.ListEvents(context.Background(), &client.ListEventsRequest{
			Search: search,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}

		if jsonOutput {
			printJSON(resp)
		} else {
			printEventList(os.Stdout, resp)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("search", "q", "", "substring match on name or description")
	listCmd.Flags().Int("limit", 20, "maximum number of events to return")
	listCmd.Flags().Int("offset", 0, "offset for pagination")
}

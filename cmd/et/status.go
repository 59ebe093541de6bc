package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the change status bar for every event",
	GroupID: "pipeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := apiClient.StatusFeed(context.Background())
		if err != nil {
			return fmt.Errorf("getting status feed: %w", err)
		}
		if jsonOutput {
			printJSON(feed)
		} else {
			renderBars(os.Stdout, feed)
		}
		return nil
	},
}

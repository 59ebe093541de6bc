package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var correlateCmd = &cobra.Command{
	Use:     "correlate <id>",
	Short:   "Re-run correlation for an event (results are appended)",
	GroupID: "pipeline",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Correlate(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("correlating %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(res)
			return nil
		}
		printOutcome(os.Stdout, res.Outcome)
		if res.Event != nil {
			fmt.Printf("Status: %s\n", matchedLabel(res.Status))
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset <id>",
	Short:   "Delete every change recorded for an event",
	GroupID: "pipeline",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.ResetChanges(context.Background(), args[0]); err != nil {
			return fmt.Errorf("resetting %s: %w", args[0], err)
		}
		if !jsonOutput {
			fmt.Printf("Cleared changes for %s\n", args[0])
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show an event with its references and changes",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		detail, err := apiClient.GetEvent(context.Background(), id)
		if err != nil {
			return fmt.Errorf("getting event %s: %w", id, err)
		}

		if jsonOutput {
			printJSON(detail)
		} else {
			printEventDetail(os.Stdout, detail)
		}
		return nil
	},
}

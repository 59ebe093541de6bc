package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventtrace/internal/client"
)

var refCmd = &cobra.Command{
	Use:     "ref",
	Short:   "Manage an event's referenced articles",
	GroupID: "events",
}

var refAddCmd = &cobra.Command{
	Use:   "add <event-id> <title> <url>",
	Short: "Add a referenced article; used by the next correlation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := apiClient.AddReference(context.Background(), args[0], &client.ReferenceRequest{
			Title: args[1],
			URL:   args[2],
		})
		if err != nil {
			return fmt.Errorf("adding reference: %w", err)
		}
		if jsonOutput {
			printJSON(ref)
		} else {
			fmt.Printf("Added reference %q to %s\n", ref.Title, ref.EventID)
		}
		return nil
	},
}

var refListCmd = &cobra.Command{
	Use:   "list <event-id>",
	Short: "List an event's referenced articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := apiClient.GetReferences(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing references: %w", err)
		}
		if jsonOutput {
			printJSON(refs)
			return nil
		}
		for _, r := range refs {
			fmt.Printf("%s <%s>\n", r.Title, r.URL)
		}
		return nil
	},
}

func init() {
	refCmd.AddCommand(refAddCmd)
	refCmd.AddCommand(refListCmd)
}

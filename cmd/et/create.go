package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventtrace/internal/client"
)

// parseReferences converts --ref "Title=URL" pairs into reference requests.
// The split is on the last "=" so titles may contain one.
func parseReferences(pairs []string) ([]client.ReferenceRequest, error) {
	refs := make([]client.ReferenceRequest, 0, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 || i == len(p)-1 {
			return nil, fmt.Errorf("invalid reference %q: expected Title=URL", p)
		}
		refs = append(refs, client.ReferenceRequest{
			Title: strings.TrimSpace(p[:i]),
			URL:   strings.TrimSpace(p[i+1:]),
		})
	}
	return refs, nil
}

var createCmd = &cobra.Command{
	Use:     "create <name>",
	Short:   "Record an event and correlate it",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetString("tags")
		infoLink, _ := cmd.Flags().GetString("info-link")
		refPairs, _ := cmd.Flags().GetStringArray("ref")

		refs, err := parseReferences(refPairs)
		if err != nil {
			return err
		}

		res, err := apiClient.CreateEvent(context.Background(), &client.CreateEventRequest{
			Date:        date,
			Name:        args[0],
			Description: description,
			Tags:        tags,
			InfoLink:    infoLink,
			References:  refs,
		})
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.EventID != "" {
				fmt.Fprintf(os.Stderr, "Event %s was stored; retry with 'et correlate %s'\n", apiErr.EventID, apiErr.EventID)
			}
			return fmt.Errorf("creating event: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}
		printEventDetail(os.Stdout, &res.EventDetail)
		fmt.Println()
		printOutcome(os.Stdout, res.Outcome)
		return nil
	},
}

func init() {
	createCmd.Flags().String("date", "", "event date (YYYY-MM-DD)")
	createCmd.Flags().StringP("description", "d", "", "event description")
	createCmd.Flags().String("tags", "", "free-form tags")
	createCmd.Flags().String("info-link", "", "URL with more information")
	createCmd.Flags().StringArrayP("ref", "r", nil, "referenced article as Title=URL (repeatable)")
	_ = createCmd.MarkFlagRequired("date")
	_ = createCmd.MarkFlagRequired("description")
}

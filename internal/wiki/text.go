package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Placeholder is the fixed stand-in article text returned by PlaceholderText.
const Placeholder = "This is a sample text of a Wikipedia article for demonstration purposes."

// TextSource returns the text of an article, used to judge its relevance.
type TextSource interface {
	FetchText(ctx context.Context, title string) (string, error)
}

// PlaceholderText returns Placeholder for every title without any network access.
type PlaceholderText struct{}

// FetchText implements TextSource.
func (PlaceholderText) FetchText(context.Context, string) (string, error) {
	return Placeholder, nil
}

// Compile-time checks.
var (
	_ TextSource = PlaceholderText{}
	_ TextSource = (*Client)(nil)
)

// FetchText returns the plain-text extract of the current version of title.
// A missing page yields an empty string.
func (c *Client) FetchText(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)

	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode extract for %q: %w", title, err)
	}
	for _, p := range sortedPages(resp.Query.Pages) {
		if p.Extract != "" {
			return p.Extract, nil
		}
	}
	return "", nil
}

// Package wiki is a small MediaWiki Action API client. It retrieves revision
// history for article titles and, optionally, the plain text of an article.
package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultAPIURL    = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent = "eventtrace/1.0 (+https://github.com/alfredjeanlab/eventtrace)"
	DefaultWindow    = 90 * 24 * time.Hour
	DefaultTimeout   = 30 * time.Second
	DefaultRate      = 10.0
)

// timestampLayout is the MediaWiki ISO 8601 form used for rvstart/rvend.
const timestampLayout = "2006-01-02T15:04:05Z"

// Options configures a Client.
type Options struct {
	APIURL    string
	UserAgent string
	// Window is the length of the revision window that starts at the event date.
	Window  time.Duration
	Timeout time.Duration
	// Rate is the maximum number of API requests per second; negative disables limiting.
	Rate   float64
	Logger *slog.Logger
}

// Client talks to one MediaWiki API endpoint. It is safe for concurrent use.
type Client struct {
	apiURL     string
	userAgent  string
	window     time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api: HTTP %d: %s", e.StatusCode, e.Message)
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Rate == 0 {
		opts.Rate = DefaultRate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Limit(opts.Rate)
	if opts.Rate < 0 {
		limit = rate.Inf
	}

	return &Client{
		apiURL:     opts.APIURL,
		userAgent:  opts.UserAgent,
		window:     opts.Window,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: newHTTPClient(opts.Timeout),
		logger:     opts.Logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Window returns the configured revision window length.
func (c *Client) Window() time.Duration { return c.window }

// get performs a rate-limited GET against the API and returns the body.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}

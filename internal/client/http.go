package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/status"
)

// DefaultTimeout bounds a single API call. Correlation on intake fetches
// article text and revisions synchronously, so it is generous.
const DefaultTimeout = 2 * time.Minute

// HTTPClient implements EventClient using the eventtrace HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check that HTTPClient satisfies EventClient.
var _ EventClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func eventPath(id string) string {
	return "/v1/events/" + url.PathEscape(id)
}

// --- Events ---

// CreateEvent stores an event and correlates it. When the event is stored but
// correlation fails the error is an *APIError with EventID set.
func (c *HTTPClient) CreateEvent(ctx context.Context, req *CreateEventRequest) (*CorrelateResult, error) {
	var res CorrelateResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, id string) (*EventDetail, error) {
	var detail EventDetail
	if err := c.doJSON(ctx, http.MethodGet, eventPath(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) ListEvents(ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	q := url.Values{}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	path := "/v1/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListEventsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- References ---

func (c *HTTPClient) AddReference(ctx context.Context, eventID string, req *ReferenceRequest) (*model.Reference, error) {
	var ref model.Reference
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID)+"/references", req, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (c *HTTPClient) GetReferences(ctx context.Context, eventID string) ([]*model.Reference, error) {
	var resp struct {
		References []*model.Reference `json:"references"`
	}
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID)+"/references", nil, &resp); err != nil {
		return nil, err
	}
	return resp.References, nil
}

// --- Changes ---

func (c *HTTPClient) GetChanges(ctx context.Context, eventID string) ([]*model.Change, error) {
	var resp struct {
		Changes []*model.Change `json:"changes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID)+"/changes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

// Correlate re-runs correlation for an existing event. Results are appended
// to earlier runs.
func (c *HTTPClient) Correlate(ctx context.Context, eventID string) (*CorrelateResult, error) {
	var res CorrelateResult
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID)+"/correlate", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) ResetChanges(ctx context.Context, eventID string) error {
	return c.doJSON(ctx, http.MethodDelete, eventPath(eventID)+"/changes", nil, nil)
}

// --- Status and export ---

func (c *HTTPClient) StatusFeed(ctx context.Context) (*status.Feed, error) {
	var feed status.Feed
	if err := c.doJSON(ctx, http.MethodGet, "/v1/status", nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Export streams the server's JSONL export to w.
func (c *HTTPClient) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, "/v1/export", nil, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	return nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// EventID is set when intake stored the event but correlation failed.
	EventID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, bodyReader, body != nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, isJSON bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	return resp, nil
}

// apiError builds an APIError from a JSON {"error": ...} body, falling back
// to the raw body text.
func apiError(code int, respBody []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		EventID string `json:"event_id"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: code, Message: errResp.Error, EventID: errResp.EventID}
	}
	return &APIError{StatusCode: code, Message: strings.TrimSpace(string(respBody))}
}

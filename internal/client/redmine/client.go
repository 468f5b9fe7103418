package redmine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const apiKeyHeader = "X-Redmine-API-Key"

// MaxPageSize is the largest limit Redmine honors on list endpoints.
const MaxPageSize = 100

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("redmine API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, apiKey, path string, query url.Values) ([]byte, error) {
	if c.host == "" {
		return nil, fmt.Errorf("redmine base url is empty")
	}
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

// ListIssues fetches one offset/limit window of /issues.json. Records are
// returned undecoded and in the order the server sent them.
func (c *Client) ListIssues(ctx context.Context, apiKey string, req ListIssuesRequest, offset, limit int) (*IssuePage, error) {
	query := req.Values()
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	body, err := c.doRequest(ctx, apiKey, "/issues.json", query)
	if err != nil {
		return nil, err
	}
	return parseIssuePage(body)
}

// CurrentUser hits /users/current.json; a 200 means the key is accepted.
func (c *Client) CurrentUser(ctx context.Context, apiKey string) (json.RawMessage, error) {
	body, err := c.doRequest(ctx, apiKey, "/users/current.json", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed user response: %w", err)
	}
	return envelope.User, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

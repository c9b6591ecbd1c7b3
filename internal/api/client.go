// Package api is the HTTP client for the verification backend.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"prizedesk/internal/logging"
	"prizedesk/internal/types"
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the REST API rooted at baseURL (e.g. http://localhost:5000/api).
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Error is a non-2xx response from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("%s %s failed: %v", method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	timer.StopWithThreshold(2 * time.Second)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		logging.APIError("%v", apiErr)
		return apiErr
	}

	logging.APIDebug("%s %s -> %d", method, path, resp.StatusCode)
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// =============================================================================
// VERIFICATIONS
// =============================================================================

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ListParams are the server-side search, filter, sort and paging options of
// GET /verifications. Zero values are omitted from the query string.
type ListParams struct {
	Query         string
	SearchFields  []string
	Status        string // types.Status value or types.All
	Published     string // "true", "false" or empty for any
	PrizeDueDate  string // YYYY-MM-DD
	Page          int
	Limit         int
	SortBy        string
	SortDirection SortDirection
}

// Values encodes p as query parameters.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("query", p.Query)
	}
	if len(p.SearchFields) > 0 {
		v.Set("search_fields", strings.Join(p.SearchFields, ","))
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.Published != "" && p.Published != types.All {
		v.Set("published", p.Published)
	}
	if p.PrizeDueDate != "" {
		v.Set("prize_due_date", p.PrizeDueDate)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
		dir := p.SortDirection
		if dir == "" {
			dir = Asc
		}
		v.Set("sort_direction", string(dir))
	}
	return v
}

// CreateVerification creates an empty draft and returns it with its new id.
func (c *Client) CreateVerification(ctx context.Context) (types.Record, error) {
	var rec types.Record
	if err := c.do(ctx, http.MethodPost, "/verifications", nil, struct{}{}, &rec); err != nil {
		return types.Record{}, err
	}
	return rec.WithDefaults(), nil
}

// ListVerifications returns one page of records.
func (c *Client) ListVerifications(ctx context.Context, p ListParams) (types.Page, error) {
	var page types.Page
	if err := c.do(ctx, http.MethodGet, "/verifications", p.Values(), nil, &page); err != nil {
		return types.Page{}, err
	}
	for i := range page.Records {
		page.Records[i] = page.Records[i].WithDefaults()
	}
	return page, nil
}

// GetVerification fetches one record.
func (c *Client) GetVerification(ctx context.Context, id string) (types.Record, error) {
	var rec types.Record
	if err := c.do(ctx, http.MethodGet, "/verifications/"+url.PathEscape(id), nil, nil, &rec); err != nil {
		return types.Record{}, err
	}
	return rec.WithDefaults(), nil
}

// UpdateVerification replaces the stored record with rec.
func (c *Client) UpdateVerification(ctx context.Context, id string, rec types.Record) (types.Record, error) {
	return c.patchVerification(ctx, id, rec)
}

// SetPublished flips only the publish flag of a record.
func (c *Client) SetPublished(ctx context.Context, id string, published bool) (types.Record, error) {
	return c.patchVerification(ctx, id, map[string]any{"prize_published_on_group": published})
}

func (c *Client) patchVerification(ctx context.Context, id string, body any) (types.Record, error) {
	var rec types.Record
	if err := c.do(ctx, http.MethodPut, "/verifications/"+url.PathEscape(id), nil, body, &rec); err != nil {
		return types.Record{}, err
	}
	return rec.WithDefaults(), nil
}

// DeleteVerification removes a record.
func (c *Client) DeleteVerification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/verifications/"+url.PathEscape(id), nil, nil, nil)
}

// DashboardStats fetches the aggregate counters.
func (c *Client) DashboardStats(ctx context.Context) (types.DashboardStats, error) {
	var stats types.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard-stats", nil, nil, &stats); err != nil {
		return types.DashboardStats{}, err
	}
	return stats, nil
}

// GenerateKlisha asks the backend to render the winner message of a record.
func (c *Client) GenerateKlisha(ctx context.Context, id string) (string, error) {
	var out struct {
		Klisha string `json:"klisha"`
	}
	if err := c.do(ctx, http.MethodGet, "/generate-klisha/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return "", err
	}
	return out.Klisha, nil
}

// =============================================================================
// PENDING ISSUES
// =============================================================================

// ListPendingIssues returns issues filtered by status (types.All or empty for every issue).
func (c *Client) ListPendingIssues(ctx context.Context, status string) ([]types.PendingIssue, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status_filter", status)
	}
	var issues []types.PendingIssue
	if err := c.do(ctx, http.MethodGet, "/pending-issues", q, nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CreatePendingIssue records a new open issue.
func (c *Client) CreatePendingIssue(ctx context.Context, in types.NewIssue) (types.PendingIssue, error) {
	var issue types.PendingIssue
	if err := c.do(ctx, http.MethodPost, "/pending-issues", nil, in, &issue); err != nil {
		return types.PendingIssue{}, err
	}
	return issue, nil
}

// SetIssueStatus changes the status of an issue.
func (c *Client) SetIssueStatus(ctx context.Context, id string, status types.IssueStatus) (types.PendingIssue, error) {
	var issue types.PendingIssue
	body := map[string]any{"status": status}
	if err := c.do(ctx, http.MethodPut, "/pending-issues/"+url.PathEscape(id), nil, body, &issue); err != nil {
		return types.PendingIssue{}, err
	}
	return issue, nil
}

// MarkIssuesSent flags the given issues as posted to the group.
func (c *Client) MarkIssuesSent(ctx context.Context, ids []string) error {
	body := map[string][]string{"ids": ids}
	return c.do(ctx, http.MethodPut, "/pending-issues/mark-sent", nil, body, nil)
}

// DeletePendingIssue removes an issue.
func (c *Client) DeletePendingIssue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/pending-issues/"+url.PathEscape(id), nil, nil, nil)
}

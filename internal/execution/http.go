package execution

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

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

const (
	// DefaultBaseURL is the report service the HTTP executor talks to
	// when none is configured.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// DefaultTimeout bounds every HTTP call.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept in errors.
	maxErrorBody = 4 << 10
)

// HistoryEntry is one row of the remote report history.
type HistoryEntry struct {
	ID            string                `json:"id"`
	TemplateName  string                `json:"template_name,omitempty"`
	QueryConfig   ir.QueryConfiguration `json:"query_config"`
	Success       bool                  `json:"success"`
	RowCount      int                   `json:"row_count"`
	ExecutionTime float64               `json:"execution_time"`
	Message       string                `json:"message,omitempty"`
	CreatedAt     string                `json:"created_at,omitempty"`
}

// HTTPExecutor calls a remote report service.
//
// Besides Run and Preview it lists tables and fields, so it also serves
// as a catalog.Source.
type HTTPExecutor struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

// HTTPOption configures an HTTPExecutor.
type HTTPOption func(*HTTPExecutor)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) HTTPOption {
	return func(h *HTTPExecutor) {
		h.token = token
	}
}

// WithHTTPClient replaces the default client. Its Timeout is used as-is.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPExecutor) {
		h.client = c
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPExecutor) {
		h.client.Timeout = d
	}
}

// NewHTTPExecutor creates an executor for the service at baseURL
// (DefaultBaseURL when empty).
func NewHTTPExecutor(baseURL string, opts ...HTTPOption) (*HTTPExecutor, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	h := &HTTPExecutor{
		baseURL: u,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run posts the request to /reports/run.
func (h *HTTPExecutor) Run(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	return h.report(ctx, "/reports/run", req)
}

// Preview posts the request to /reports/preview.
func (h *HTTPExecutor) Preview(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	return h.report(ctx, "/reports/preview", req)
}

func (h *HTTPExecutor) report(ctx context.Context, path string, req ir.RunRequest) (*ir.RunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	var resp ir.RunResponse
	if err := h.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "report service reported failure"
		}
		return nil, &Error{Code: ErrCodeExecutionFailed, Message: msg}
	}
	return &resp, nil
}

// ListTables fetches /datasources/tables.
func (h *HTTPExecutor) ListTables(ctx context.Context) ([]ir.Table, error) {
	var tables []ir.Table
	if err := h.do(ctx, http.MethodGet, "/datasources/tables", nil, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// ListFields fetches /datasources/tables/{table}/fields.
func (h *HTTPExecutor) ListFields(ctx context.Context, table string) ([]string, error) {
	var fields []string
	path := "/datasources/tables/" + url.PathEscape(table) + "/fields"
	if err := h.do(ctx, http.MethodGet, path, nil, nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// History fetches /reports/history. A non-positive limit means 50.
func (h *HTTPExecutor) History(ctx context.Context, skip, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(max(skip, 0)))
	q.Set("limit", strconv.Itoa(limit))

	var entries []HistoryEntry
	if err := h.do(ctx, http.MethodGet, "/reports/history", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *HTTPExecutor) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u := h.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &Error{Code: ErrCodeTransport, Message: fmt.Sprintf("%s %s", method, path), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &Error{Code: ErrCodeUnauthorized, Message: "credentials rejected", Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Code:    ErrCodeExecutionFailed,
			Message: fmt.Sprintf("%s %s: %s", method, path, errorDetail(snippet)),
			Status:  resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Code: ErrCodeDecode, Message: fmt.Sprintf("%s %s", method, path), Status: resp.StatusCode, Err: err}
	}
	return nil
}

// errorDetail extracts {"detail": "..."} or {"message": "..."} from an
// error body, falling back to the trimmed text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return text
}

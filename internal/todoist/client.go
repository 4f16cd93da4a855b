// Package todoist is a small typed client for the parts of the Todoist
// API the exporter needs: project lookup, open-task listing, single-task
// detail fetch and the legacy sync v9 completed-items call.
package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.todoist.com/api/v1"
	defaultSyncURL = "https://api.todoist.com/sync/v9"

	defaultMaxRetries       = 3
	defaultRetryBackoff     = time.Second
	defaultDetailFetchDelay = 500 * time.Millisecond
)

// ErrNotFound is returned by GetTask when the task no longer exists on
// the remote (deleted between listing and detail fetch). Callers drop
// the task; every other error is terminal.
var ErrNotFound = errors.New("todoist: task not found")

// APIError is a non-2xx response that is not retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist: HTTP %d: %s", e.StatusCode, e.Body)
}

// Config holds settings for creating a Client. Only Token is required.
type Config struct {
	// Token is the bearer credential for the Todoist API.
	Token string

	// BaseURL overrides the REST API root. Defaults to the public API.
	BaseURL string

	// SyncURL overrides the sync API root used for the legacy
	// completed-items call. Defaults to the public sync v9 API.
	SyncURL string

	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives retry diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger

	// MaxRetries bounds retry attempts on transient (502/503/504)
	// responses. Defaults to 3.
	MaxRetries int

	// RetryBackoff is the initial backoff before the first retry; it
	// doubles per attempt. Defaults to 1s.
	RetryBackoff time.Duration

	// DetailFetchDelay spaces out GetTask calls: at most one call per
	// delay window. Defaults to 500ms.
	DetailFetchDelay time.Duration
}

// Client talks to the Todoist API with bearer auth, bounded retries on
// transient server errors and a rate limit on single-task detail
// fetches.
type Client struct {
	token         string
	baseURL       string
	syncURL       string
	httpClient    *http.Client
	logger        *zap.Logger
	maxRetries    int
	retryBackoff  time.Duration
	detailLimiter *rate.Limiter
}

// NewClient creates a Client from the given configuration.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("todoist: token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	syncURL := config.SyncURL
	if syncURL == "" {
		syncURL = defaultSyncURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryBackoff := config.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	detailFetchDelay := config.DetailFetchDelay
	if detailFetchDelay <= 0 {
		detailFetchDelay = defaultDetailFetchDelay
	}

	return &Client{
		token:         config.Token,
		baseURL:       strings.TrimRight(baseURL, "/"),
		syncURL:       strings.TrimRight(syncURL, "/"),
		httpClient:    httpClient,
		logger:        logger,
		maxRetries:    maxRetries,
		retryBackoff:  retryBackoff,
		detailLimiter: rate.NewLimiter(rate.Every(detailFetchDelay), 1),
	}, nil
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/projects/"+url.PathEscape(projectID), nil, &project); err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return &project, nil
}

type tasksPage struct {
	Results    []Task  `json:"results"`
	NextCursor *string `json:"next_cursor"`
}

// ListTasks fetches all open tasks of a project, following cursor
// pagination until exhausted. API order is preserved.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	var tasks []Task
	cursor := ""
	for {
		query := url.Values{"project_id": {projectID}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		var page tasksPage
		if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/tasks?"+query.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("list tasks of project %s: %w", projectID, err)
		}
		tasks = append(tasks, page.Results...)
		if page.NextCursor == nil || *page.NextCursor == "" {
			return tasks, nil
		}
		cursor = *page.NextCursor
	}
}

// GetTask fetches full detail for one task. Calls pass the detail rate
// limiter first, so a burst of lookups is spread out over time. A 404
// maps to ErrNotFound.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	if err := c.detailLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	var task Task
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return &task, nil
}

type completedResponse struct {
	Items []CompletedItem `json:"items"`
}

// CompletedItems fetches every completed item of a project via the
// legacy sync v9 bulk call.
func (c *Client) CompletedItems(ctx context.Context, projectID string) ([]CompletedItem, error) {
	form := url.Values{"project_id": {projectID}}
	var response completedResponse
	if err := c.doJSON(ctx, http.MethodPost, c.syncURL+"/completed/get_all", form, &response); err != nil {
		return nil, fmt.Errorf("get completed items of project %s: %w", projectID, err)
	}
	return response.Items, nil
}

// transient reports whether a status code indicates a temporary server
// problem worth retrying.
func transient(statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// doJSON performs one API call, retrying transient server errors with
// exponential backoff, and decodes a 2xx response body into out. A
// non-nil form is sent URL-encoded as the request body.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, form url.Values, out any) error {
	backoff := c.retryBackoff
	for attempt := 0; ; attempt++ {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		request, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return err
		}
		request.Header.Set("Authorization", "Bearer "+c.token)
		if form != nil {
			request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		response, err := c.httpClient.Do(request)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(response.Body)
		response.Body.Close()
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		switch {
		case response.StatusCode >= 200 && response.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		case transient(response.StatusCode) && attempt < c.maxRetries:
			c.logger.Warn("transient todoist error, retrying",
				zap.Int("status", response.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return &APIError{
				StatusCode: response.StatusCode,
				Body:       strings.TrimSpace(string(data)),
			}
		}
	}
}

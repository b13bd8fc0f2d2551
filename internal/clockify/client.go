package clockify

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/logging"
)

const defaultBaseURL = "https://api.clockify.me/api/v1"

const pageSize = 500

var ErrNoWorkspace = errors.New("workspace ID is empty: set workspace_id in config or CLOCKIFY_WORKSPACE_ID")

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *ProjectCache
	logger     *zap.Logger

	maxRetries    uint64
	retryInterval time.Duration
}

type Option func(*Client)

// WithRetry overrides the retry count and initial backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInterval = initial
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, baseURL string, cacheTTL time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:         NewProjectCache(cacheTTL),
		logger:        logging.OrNop(logger).Named("clockify"),
		maxRetries:    3,
		retryInterval: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	c.logger.Debug("API request", zap.String("path", path))
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &statusError{status: resp.StatusCode, body: truncate(string(data), 200)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(&statusError{status: resp.StatusCode, body: truncate(string(data), 200)})
		}
		body = data
		return nil
	}

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Debug("API request failed, retrying",
			zap.String("path", path), zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		c.logger.Error("API request failed",
			zap.String("path", path), zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	c.logger.Debug("API response",
		zap.String("path", path), zap.Int("bytes", len(body)), zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) GetUser(ctx context.Context) (*User, error) {
	data, err := c.get(ctx, "/user", nil)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}
	return &user, nil
}

// GetProjects returns the workspace's projects keyed by ID, archived ones
// included so that old entries still resolve to a name.
func (c *Client) GetProjects(ctx context.Context, workspaceID string) (map[string]Project, error) {
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}
	if cached := c.cache.Get(workspaceID); cached != nil {
		return cached, nil
	}

	var all []Project
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page-size", fmt.Sprint(pageSize))
		q.Set("page", fmt.Sprint(page))
		data, err := c.get(ctx, "/workspaces/"+workspaceID+"/projects", q)
		if err != nil {
			return nil, fmt.Errorf("getting projects: %w", err)
		}

		var projects []Project
		if err := json.Unmarshal(data, &projects); err != nil {
			return nil, fmt.Errorf("parsing projects response: %w", err)
		}
		all = append(all, projects...)

		if len(projects) < pageSize {
			break
		}
	}

	return c.cache.Set(workspaceID, all), nil
}

// GetTimeEntries pages through a user's time entries started in [from, to).
func (c *Client) GetTimeEntries(ctx context.Context, workspaceID, userID string, from, to time.Time) ([]TimeEntry, error) {
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	var all []TimeEntry
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("start", from.UTC().Format(time.RFC3339))
		q.Set("end", to.UTC().Format(time.RFC3339))
		q.Set("page-size", fmt.Sprint(pageSize))
		q.Set("page", fmt.Sprint(page))
		path := fmt.Sprintf("/workspaces/%s/user/%s/time-entries", workspaceID, userID)
		data, err := c.get(ctx, path, q)
		if err != nil {
			return nil, fmt.Errorf("getting time entries: %w", err)
		}

		var entries []TimeEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing time entries response: %w", err)
		}
		all = append(all, entries...)

		if len(entries) < pageSize {
			break
		}
	}

	c.logger.Info("fetched time entries", zap.String("user", userID), zap.Int("count", len(all)))
	return all, nil
}

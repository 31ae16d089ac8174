// Package contextsvc reads a user's academic context document from the
// upstream data service.
package contextsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const DefaultTimeout = 15 * time.Second

// Typed failures per upstream response. Callers classify with errors.Is.
var (
	// ErrNotFound means the upstream has no record for the user.
	ErrNotFound = errors.New("user not found in context service")

	// ErrAuthRequired means the upstream demanded authentication this
	// service does not provide.
	ErrAuthRequired = errors.New("context service requires authentication")

	// ErrUnavailable covers any other upstream error status.
	ErrUnavailable = errors.New("context service error")

	// ErrUnreachable means no response was received at all.
	ErrUnreachable = errors.New("could not connect to context service")
)

// Client fetches user context documents over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a context service client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch issues a single GET {base}/context/{userID} and decodes the JSON
// response. There is deliberately no retry here: retries belong to the
// generative-AI call only.
func (c *Client) Fetch(ctx context.Context, userID string) (any, error) {
	endpoint := fmt.Sprintf("%s/context/%s", c.BaseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build context request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		slog.Debug("context_fetch_failed", "user_id", userID, "error", err)
		return nil, errors.Wrap(ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrUnreachable, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "user %s", userID)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrAuthRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Wrapf(ErrUnavailable, "status %d", resp.StatusCode)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode context response")
	}

	slog.Debug("context_fetched", "user_id", userID, "bytes", len(body))
	return doc, nil
}

// internal/tvmaze/client.go
//
// Minimal client for the public TVMaze REST API.
// Only the two read endpoints the game needs are implemented:
//   - GET /shows/{id}/episodes
//   - GET /shows/{id}/cast
//
// Transport errors and 5xx/429 responses are retried with exponential
// backoff; any other non-200 status or an undecodable body fails at once.

package tvmaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/showtrivia/internal/show"
)

const (
	DefaultBaseURL = "https://api.tvmaze.com"
	defaultBackoff = 250 * time.Millisecond
)

// StatusError reports an unexpected HTTP status from TVMaze.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tvmaze: %s returned status %d", e.URL, e.StatusCode)
}

// Client fetches show metadata. The zero value is not usable; use NewClient.
type Client struct {
	http    *http.Client
	baseURL string
	retries int
	backoff time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another host (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the initial delay between retries; it doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient builds a client around hc (http.DefaultClient when nil).
func NewClient(hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{
		http:    hc,
		baseURL: DefaultBaseURL,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Episodes returns every episode of the show in TVMaze order.
func (c *Client) Episodes(ctx context.Context, showID int) ([]show.Episode, error) {
	var out []show.Episode
	if err := c.getJSON(ctx, fmt.Sprintf("/shows/%d/episodes", showID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cast returns the show's main cast.
func (c *Client) Cast(ctx context.Context, showID int) ([]show.CastMember, error) {
	var out []show.CastMember
	if err := c.getJSON(ctx, fmt.Sprintf("/shows/%d/cast", showID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	url := c.baseURL + path
	delay := c.backoff

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Debug().Str("url", url).Int("attempt", attempt).Err(lastErr).Msg("tvmaze retry")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		retry, err := c.do(ctx, url, v)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// do performs one request. The bool reports whether the failure is worth
// retrying.
func (c *Client) do(ctx context.Context, url string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return !errors.Is(err, context.Canceled), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retry, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("tvmaze: decode %s: %w", url, err)
	}
	return false, nil
}

// Package fetch downloads the public FPL API into the raw JSON cache and decodes it into model types.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/store"
)

const (
	DefaultBaseURL = "https://fantasy.premierleague.com/api"
	maxAttempts    = 3
)

type Client struct {
	HTTP         *http.Client
	Store        *store.JSONStore
	BaseURL      string
	UserAgent    string
	Sleep        time.Duration
	Backoff      time.Duration
	PrettyWrite  bool
	UseCache     bool
	DisableWrite bool
	Log          zerolog.Logger
}

func NewClient(st *store.JSONStore, log zerolog.Logger) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: 20 * time.Second},
		Store:       st,
		BaseURL:     DefaultBaseURL,
		UserAgent:   "fpl-squad-planner/1.0",
		Sleep:       100 * time.Millisecond,
		Backoff:     500 * time.Millisecond,
		PrettyWrite: true,
		UseCache:    true,
		Log:         log.With().Str("component", "fetch").Logger(),
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s failed: %d body=%s", e.Path, e.Code, e.Body)
}

// FetchRaw downloads urlPath (like "/bootstrap-static/") and writes it to relPath.
// Returns raw bytes (from cache or network). 5xx responses are retried with doubling backoff.
func (c *Client) FetchRaw(ctx context.Context, urlPath string, relPath string, force bool) ([]byte, error) {
	if !force && c.UseCache && c.Store != nil && c.Store.Exists(relPath) {
		return c.Store.ReadRaw(relPath)
	}

	if err := sleep(ctx, c.Sleep); err != nil {
		return nil, err
	}

	var (
		body []byte
		err  error
	)
	wait := c.Backoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err = c.get(ctx, urlPath)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || se.Code < 500 || attempt == maxAttempts {
			break
		}
		c.Log.Warn().Str("path", urlPath).Int("status", se.Code).Int("attempt", attempt).Msg("retrying")
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		wait *= 2
	}
	if err != nil {
		return nil, err
	}

	if !c.DisableWrite && c.Store != nil {
		if err := c.Store.WriteRaw(relPath, body, c.PrettyWrite); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, urlPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+urlPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", urlPath, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Path: urlPath, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package cache publishes dependency closures to a remote binary cache
// over HTTP. Every object is content-addressed, so uploads commute and
// re-publishing an already-present path is a cheap no-op: the client
// probes for the narinfo first and only ships missing archives.
package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/cachefreight/src/nixstore"
)

// Exporter serializes a store path for upload. Implemented by
// nixstore.Store; faked in tests.
type Exporter interface {
	Export(ctx context.Context, path string) ([]byte, error)
}

// PublishStats counts the outcome of one Publish call.
type PublishStats struct {
	Uploaded int64
	Skipped  int64 // already present in the cache
}

// Client uploads closures to one binary cache endpoint.
type Client struct {
	cred     Credential
	exporter Exporter
	http     *retryablehttp.Client
	parallel int
}

// NewClient creates an authenticated cache client. Network operations
// carry a bounded timeout; transient failures (timeouts, 5xx) are
// retried with exponential backoff up to maxAttempts.
func NewClient(cred Credential, exporter Exporter, maxAttempts int, timeout time.Duration, parallel int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxAttempts - 1
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	// Quota faults are permanent; retrying them only burns the budget.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusInsufficientStorage {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if parallel < 1 {
		parallel = 1
	}
	return &Client{
		cred:     cred,
		exporter: exporter,
		http:     rc,
		parallel: parallel,
	}
}

// Authenticate probes the cache endpoint with the bearer token.
// Returns an AuthError if the token is rejected or the endpoint is
// unreachable.
func (c *Client) Authenticate(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.url("nix-cache-info"), nil)
	if err != nil {
		return &AuthError{Endpoint: c.cred.Endpoint, Err: err}
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AuthError{Endpoint: c.cred.Endpoint, Err: fmt.Errorf("token rejected (%s)", resp.Status)}
	case resp.StatusCode >= 400:
		return &AuthError{Endpoint: c.cred.Endpoint, Err: fmt.Errorf("unexpected response %s", resp.Status)}
	}
	return nil
}

// Publish uploads every path in the closure. Paths upload independently
// and idempotently, so a partial failure never corrupts paths that
// already succeeded and no rollback is needed. The first error cancels
// outstanding uploads and is returned.
func (c *Client) Publish(ctx context.Context, closure nixstore.Closure) (*PublishStats, error) {
	stats := &PublishStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)

	for _, path := range closure {
		g.Go(func() error {
			uploaded, err := c.publishPath(gctx, path)
			if err != nil {
				return err
			}
			if uploaded {
				atomic.AddInt64(&stats.Uploaded, 1)
			} else {
				atomic.AddInt64(&stats.Skipped, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// publishPath uploads one store path unless the cache already has it.
// Returns true if an upload happened.
func (c *Client) publishPath(ctx context.Context, path string) (bool, error) {
	digest := pathDigest(path)
	infoURL := c.url(digest + ".narinfo")

	resp, err := c.do(ctx, http.MethodHead, infoURL, nil)
	if err != nil {
		return false, &PublishError{Path: path, Retryable: true, Err: err}
	}
	drain(resp)
	if resp.StatusCode == http.StatusOK {
		return false, nil // already present
	}

	nar, err := c.exporter.Export(ctx, path)
	if err != nil {
		return false, &PublishError{Path: path, Retryable: false, Err: err}
	}

	narURL := c.url("nar/" + digest + ".nar")
	if err := c.put(ctx, path, narURL, nar); err != nil {
		return false, err
	}

	info := fmt.Sprintf("StorePath: %s\nURL: nar/%s.nar\nCompression: none\nNarSize: %d\n",
		path, digest, len(nar))
	if err := c.put(ctx, path, infoURL, []byte(info)); err != nil {
		return false, err
	}
	return true, nil
}

// put uploads a body and classifies failures per the error taxonomy.
func (c *Client) put(ctx context.Context, path, url string, body []byte) error {
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		// The HTTP layer already exhausted its retry budget.
		return &PublishError{Path: path, Retryable: true, Err: err}
	}
	drain(resp)

	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusRequestEntityTooLarge,
		resp.StatusCode == http.StatusInsufficientStorage:
		// Permission or quota faults won't heal with another attempt.
		return &PublishError{Path: path, Retryable: false, Err: fmt.Errorf("%s: %s", url, resp.Status)}
	default:
		return &PublishError{Path: path, Retryable: true, Err: fmt.Errorf("%s: %s", url, resp.Status)}
	}
}

// do issues one request with the bearer token attached.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	return c.http.Do(req)
}

func (c *Client) url(suffix string) string {
	return strings.TrimSuffix(c.cred.Endpoint, "/") + "/" + suffix
}

// pathDigest extracts the content-addressed digest from a store path
// basename (/nix/store/<digest>-<name>).
func pathDigest(path string) string {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.Index(base, "-"); i > 0 {
		return base[:i]
	}
	return base
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Package feed retrieves remote iCal documents over HTTP.
// One fetch per (unit, platform) pair; the sync orchestrator decides what to
// do with the body.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// userAgent identifies this system to the platforms serving the feeds.
// Some platforms throttle or block anonymous clients.
const userAgent = "Pine Valley Booking System"

// maxFeedBytes caps the response body read. Real platform feeds are a few
// kilobytes; anything near this limit is not a calendar.
const maxFeedBytes = 5 << 20

// Fetcher performs timeout-bounded HTTP GETs for calendar feeds.
// A stalled feed must never hang a sync run, so the client timeout is the
// hard upper bound on any single fetch.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher whose requests time out after the given
// duration. A zero or negative timeout falls back to 15 seconds.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the document at url and returns its body.
// Any transport failure or non-2xx status wraps domain.ErrFeedUnavailable,
// carrying the HTTP status text so sync results can report what went wrong.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed.Fetcher.Fetch: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed.Fetcher.Fetch: %w: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the keep-alive connection can be reused by the next
		// fetch in the sync run.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBytes))
		return nil, fmt.Errorf("feed.Fetcher.Fetch: %w: %s", domain.ErrFeedUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("feed.Fetcher.Fetch: read body: %w", err)
	}
	return body, nil
}

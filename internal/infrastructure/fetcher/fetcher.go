// Package fetcher performs the HTTP side of a run: one GET per source
// with bounded retry, executed under a bounded worker pool.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"sitewatch/internal/domain"
	"sitewatch/internal/ports"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultConcurrency = 6

	maxAttempts    = 3
	initialBackoff = 600 * time.Millisecond
	backoffFactor  = 2

	// maxBodyBytes bounds how much of a response the normalizer ever
	// sees; listing pages are far smaller than this.
	maxBodyBytes = 4 << 20

	userAgent      = "Mozilla/5.0 (compatible; sitewatch/1.0)"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// retryStatus holds the transient status codes worth another attempt.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher issues GETs through one shared client so connections are
// reused across sources within a run.
type Fetcher struct {
	client      *http.Client
	concurrency int
	logger      *slog.Logger
	backoff     time.Duration
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New wires an HTTP client; a nil client gets the default timeout, a
// non-positive concurrency gets the default bound.
func New(client *http.Client, concurrency int, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{
		client:      client,
		concurrency: concurrency,
		logger:      logger,
		backoff:     initialBackoff,
	}
}

// FetchAll fetches every source under the concurrency bound and returns
// one outcome per source, index-aligned with the input. A failure of one
// source never aborts the others.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []domain.Source) []domain.FetchOutcome {
	outcomes := make([]domain.FetchOutcome, len(srcs))

	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			body, contentType, err := f.fetchOne(ctx, src.URL)
			if err != nil {
				f.debug("fetch failed", "label", src.Label, "url", src.URL, "error", err)
				outcomes[i] = domain.FetchOutcome{Source: src, Err: err.Error()}
				return nil
			}
			outcomes[i] = domain.FetchOutcome{Source: src, Body: body, ContentType: contentType}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// fetchOne runs the bounded retry loop for a single URL. Transport
// errors and transient status codes are retried with growing backoff;
// other status codes fail immediately.
func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, string, error) {
	delay := f.backoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, contentType, retryable, err := f.do(ctx, url)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
		if !retryable {
			return nil, "", err
		}

		if attempt < maxAttempts {
			f.debug("retrying fetch", "url", url, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= backoffFactor
		}
	}

	return nil, "", fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string) (body []byte, contentType string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		// Timeouts and connection resets are as transient as a 503.
		return nil, "", true, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", retryStatus[resp.StatusCode], fmt.Errorf("status %s", resp.Status)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", true, fmt.Errorf("read body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), false, nil
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

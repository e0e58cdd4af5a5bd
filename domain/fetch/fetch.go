// Package fetch implements HttpFetcher: a thin, retrying HTTP client
// wrapper shared by every Source. It owns timeouts, bounded retry with
// exponential backoff, and the Wayback Machine archive fallback. It never
// inspects response bodies for meaning; that is domain/content's and each
// Source's job.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/emergent-company/deathrecord/pkg/logger"
)

// Result is the outcome of a single fetch, successful or not.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
	FinalURL    string
	FromArchive bool
}

// Options configures one fetch call.
type Options struct {
	Headers map[string]string
	Timeout time.Duration

	// MaxRetries bounds retry attempts for 429/5xx responses and
	// transport errors. 0 disables retries.
	MaxRetries int

	// AllowArchiveFallback retries against the Wayback Machine's
	// availability-redirect mirror when the direct fetch is blocked.
	AllowArchiveFallback bool
}

// HTTPDoer is the external collaborator this package wraps, normally
// *http.Client, satisfiable by any round-tripping client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HttpFetcher is the uniform fetch layer every Source uses instead of
// calling an HTTP client directly.
type HttpFetcher struct {
	client HTTPDoer
	log    *slog.Logger
}

// NewHttpFetcher builds a fetcher around the given HTTP client.
func NewHttpFetcher(client HTTPDoer, log *slog.Logger) *HttpFetcher {
	return &HttpFetcher{client: client, log: log.With(logger.Scope("fetch"))}
}

// Fetch performs a GET request for url, retrying transient failures and
// falling back to the Wayback Machine mirror when the caller opts in and
// the direct attempt looks blocked (403/429).
func (f *HttpFetcher) Fetch(ctx context.Context, url string, opts Options) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result, err := f.fetchWithRetry(ctx, url, opts)
	if err != nil {
		return nil, err
	}

	if opts.AllowArchiveFallback && looksBlocked(result.StatusCode) {
		f.log.Debug("falling back to archive mirror", slog.String("url", url), slog.Int("status", result.StatusCode))
		archived, archErr := f.fetchWithRetry(ctx, ArchiveMirrorURL(url), opts)
		if archErr == nil && archived.StatusCode == http.StatusOK {
			archived.FromArchive = true
			return archived, nil
		}
	}

	return result, nil
}

func (f *HttpFetcher) fetchWithRetry(ctx context.Context, url string, opts Options) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		result, err := f.doOnce(ctx, url, opts)
		if err == nil && !isRetryableStatus(result.StatusCode) {
			return result, nil
		}
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = fmt.Errorf("fetch: retryable status %d", result.StatusCode)
		if attempt == opts.MaxRetries {
			return result, nil
		}
	}

	return nil, lastErr
}

func (f *HttpFetcher) doOnce(ctx context.Context, url string, opts Options) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}

// ArchiveMirrorURL returns the Wayback Machine availability-redirect form
// for url, the mirror every archive-fallback retry targets.
func ArchiveMirrorURL(url string) string {
	return "http://web.archive.org/web/2/" + url
}

func looksBlocked(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * 250 * time.Millisecond
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

// ContentTypeIsText reports whether ct looks like text/HTML/JSON content
// worth handing to domain/content for cleaning, as opposed to e.g. a PDF
// or image a source shouldn't have linked to.
func ContentTypeIsText(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml")
}

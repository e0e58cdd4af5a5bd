package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHttpFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := NewHttpFetcher(srv.Client(), newTestLogger())
	result, err := f.Fetch(context.Background(), srv.URL, Options{Timeout: 5 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(result.Body))
	assert.False(t, result.FromArchive)
}

func TestHttpFetcher_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHttpFetcher(srv.Client(), newTestLogger())
	result, err := f.Fetch(context.Background(), srv.URL, Options{MaxRetries: 3})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// archiveDoer blocks direct fetches and serves the Wayback mirror.
type archiveDoer struct {
	directCalls  int
	archiveCalls int
}

func (d *archiveDoer) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	if req.URL.Host == "web.archive.org" {
		d.archiveCalls++
		rec.WriteString("archived copy")
	} else {
		d.directCalls++
		rec.WriteHeader(http.StatusForbidden)
	}
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func TestHttpFetcher_ArchiveFallbackServesArchivedCopy(t *testing.T) {
	doer := &archiveDoer{}
	f := NewHttpFetcher(doer, newTestLogger())

	result, err := f.Fetch(context.Background(), "https://example.com/obit", Options{AllowArchiveFallback: true})

	require.NoError(t, err)
	assert.Equal(t, 1, doer.directCalls)
	assert.Equal(t, 1, doer.archiveCalls, "a blocked fetch must be retried against the archive mirror")
	assert.True(t, result.FromArchive)
	assert.Equal(t, "archived copy", string(result.Body))
}

func TestHttpFetcher_NoFallbackReturnsBlockedStatus(t *testing.T) {
	doer := &archiveDoer{}
	f := NewHttpFetcher(doer, newTestLogger())

	result, err := f.Fetch(context.Background(), "https://example.com/obit", Options{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.Zero(t, doer.archiveCalls)
}

func TestArchiveMirrorURL(t *testing.T) {
	got := ArchiveMirrorURL("https://example.com/article")
	assert.Equal(t, "http://web.archive.org/web/2/https://example.com/article", got)
}

func TestContentTypeIsText(t *testing.T) {
	assert.True(t, ContentTypeIsText("text/html; charset=utf-8"))
	assert.True(t, ContentTypeIsText("application/json"))
	assert.False(t, ContentTypeIsText("image/png"))
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusInternalServerError))
	assert.False(t, isRetryableStatus(http.StatusOK))
	assert.False(t, isRetryableStatus(http.StatusNotFound))
}

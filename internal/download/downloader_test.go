package download

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxdev/vx/internal/reporter"
	"github.com/vxdev/vx/internal/runtime"
)

func newTestDownloader() *Downloader {
	return New(Options{
		MaxRetries:     1,
		InitialBackoff: 5 * time.Millisecond,
		BackoffFactor:  1,
	})
}

func TestFetchSucceedsFromOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	d := newTestDownloader()
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	result, err := d.Fetch(t.Context(), runtime.DownloadSpec{URL: srv.URL}, dest, "node", "20.10.0", reporter.Noop{})
	require.NoError(t, err)
	assert.Equal(t, "origin", result.Channel)
}

func TestFetchFallsBackToOriginWhenMirrorFails(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer origin.Close()
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer mirror.Close()

	var fallbackSeen int32
	rep := recordingReporter{onEvent: func(ev reporter.Event) {
		if ev.Kind == reporter.KindDownloadFallback {
			atomic.AddInt32(&fallbackSeen, 1)
		}
	}}

	d := newTestDownloader()
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	result, err := d.Fetch(t.Context(), runtime.DownloadSpec{URL: origin.URL, Mirrors: []string{mirror.URL}}, dest, "node", "20.10.0", rep)
	require.NoError(t, err)
	assert.Equal(t, "origin", result.Channel)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbackSeen))
}

func TestFetchRejectsTooSmallArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := newTestDownloader()
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	_, err := d.Fetch(t.Context(), runtime.DownloadSpec{URL: srv.URL}, dest, "node", "20.10.0", reporter.Noop{})
	require.Error(t, err)
}

func TestFetchChecksumMismatchIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	d := newTestDownloader()
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	spec := runtime.DownloadSpec{
		URL:      srv.URL,
		Checksum: runtime.ChecksumRef{Value: "sha256:0000000000000000000000000000000000000000000000000000000000000000"},
	}
	_, err := d.Fetch(t.Context(), spec, dest, "node", "20.10.0", reporter.Noop{})
	require.Error(t, err)
}

func TestFetchHTTPErrorExhaustsAllCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := newTestDownloader()
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	_, err := d.Fetch(t.Context(), runtime.DownloadSpec{URL: srv.URL}, dest, "node", "20.10.0", reporter.Noop{})
	require.Error(t, err)
}

type recordingReporter struct {
	onEvent func(reporter.Event)
}

func (r recordingReporter) Report(ev reporter.Event) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vxdev/vx/internal/checksum"
	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/reporter"
	"github.com/vxdev/vx/internal/runtime"
)

// minPlausibleBytes guards against a "successful" download that is
// suspiciously small to be a real artifact (spec §4.5 step 5).
const minPlausibleBytes = 1024

// Options tunes timeouts and retry behavior. Zero value uses the spec's
// defaults (§5 Timeouts).
type Options struct {
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	BackoffFactor  float64
	Optimizer      Optimizer
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.TotalTimeout == 0 {
		o.TotalTimeout = 120 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.InitialBackoff == 0 {
		o.InitialBackoff = time.Second
	}
	if o.BackoffFactor == 0 {
		o.BackoffFactor = 2
	}
	if o.Optimizer == nil {
		o.Optimizer = NoopOptimizer{}
	}
	return o
}

// Downloader fetches artifacts over HTTPS with retry/backoff and
// CDN-then-origin fallback, verifying the result against the spec's
// declared checksum.
type Downloader struct {
	client *http.Client
	opts   Options
}

// New builds a Downloader. opts is normalized with spec defaults.
func New(opts Options) *Downloader {
	opts = opts.withDefaults()
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	return &Downloader{
		client: &http.Client{
			Timeout: opts.TotalTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: opts.ConnectTimeout,
			},
		},
		opts: opts,
	}
}

// Result reports where the artifact actually came from, for the sentinel
// file (spec §6: sentinel records source_url).
type Result struct {
	SourceURL string
	Channel   string
	Checksum  string
}

// Fetch downloads spec's artifact to destPath, trying every candidate URL
// with retry/backoff, and verifies the checksum if one is declared. tool/
// version/rep are used purely for reporting.
func (d *Downloader) Fetch(ctx context.Context, spec runtime.DownloadSpec, destPath, tool, version string, rep reporter.Reporter) (Result, error) {
	if rep == nil {
		rep = reporter.Noop{}
	}
	candidates := Candidates(spec, d.opts.Optimizer)

	var lastErr error
	for i, cand := range candidates {
		if i > 0 {
			rep.Report(reporter.Event{
				Kind: reporter.KindDownloadFallback, Tool: tool, Version: version,
				Channel: cand.Channel, Message: candidates[i-1].Channel,
			})
		}

		rep.Report(reporter.Event{Kind: reporter.KindDownloadStart, Tool: tool, Version: version, Channel: cand.Channel})
		size, err := d.fetchOneWithRetry(ctx, cand, destPath, tool, version, rep)
		if err == nil {
			result := Result{SourceURL: cand.URL, Channel: cand.Channel}
			if !spec.Checksum.Empty() {
				sum, verifyErr := d.verify(ctx, spec, destPath)
				if verifyErr != nil {
					os.Remove(destPath)
					return Result{}, verifyErr
				}
				result.Checksum = sum
			}
			rep.Report(reporter.Event{Kind: reporter.KindDownloadComplete, Tool: tool, Version: version, Channel: cand.Channel, Downloaded: size})
			return result, nil
		}
		lastErr = err
		slog.Debug("download candidate failed", "channel", cand.Channel, "url", cand.URL, "err", err)
	}

	return Result{}, vxerrors.Wrap(vxerrors.CategoryNetwork, fmt.Sprintf("all download candidates for %s@%s failed", tool, version), lastErr)
}

// fetchOneWithRetry retries a single candidate URL with exponential
// backoff and jitter; a checksum mismatch is caught by the caller after a
// successful fetch, not here — this loop only covers transient network
// failures.
func (d *Downloader) fetchOneWithRetry(ctx context.Context, cand Candidate, destPath, tool, version string, rep reporter.Reporter) (int64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialBackoff
	b.Multiplier = d.opts.BackoffFactor
	b.RandomizationFactor = 0.3

	return backoff.Retry(ctx, func() (int64, error) {
		return d.fetchOnce(ctx, cand.URL, destPath, tool, version, rep)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(d.opts.MaxRetries+1)))
}

func (d *Downloader) fetchOnce(ctx context.Context, url, destPath, tool, version string, rep reporter.Reporter) (int64, error) {
	// The connect phase is time-bounded by the Transport's DialContext
	// dialer (set in New), not by a short-lived request context here —
	// req's context must stay live through the body copy below.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return 0, vxerrors.NewHTTPError(url, resp.StatusCode)
		}
		return 0, backoff.Permanent(vxerrors.NewHTTPError(url, resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, backoff.Permanent(err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	defer f.Close()

	written, err := io.Copy(f, &countingReader{r: resp.Body, tool: tool, version: version, total: resp.ContentLength, rep: rep})
	if err != nil {
		os.Remove(destPath)
		return 0, err
	}
	if written < minPlausibleBytes {
		os.Remove(destPath)
		return 0, fmt.Errorf("downloaded artifact implausibly small (%d bytes)", written)
	}
	return written, nil
}

// verify checksums destPath against spec's declared checksum, fetching a
// remote checksums file first if the spec points at a URL rather than a
// literal value. A mismatch is fatal and never retried (spec §7
// Integrity).
func (d *Downloader) verify(ctx context.Context, spec runtime.DownloadSpec, destPath string) (string, error) {
	rep := spec.Checksum
	expected := rep.Value
	if expected == "" && rep.URL != "" {
		var err error
		expected, err = fetchChecksumFromURL(ctx, d.client, rep.URL, rep.FilePattern)
		if err != nil {
			return "", vxerrors.Wrap(vxerrors.CategoryNetwork, "fetch checksums file", err)
		}
	}
	if expected == "" {
		return "", nil
	}

	algo, want, err := checksum.Parse(expected)
	if err != nil {
		algo = checksum.DetectAlgorithm(expected)
		want = expected
		if algo == "" {
			return "", vxerrors.Wrap(vxerrors.CategoryValidation, "unrecognized checksum format", err)
		}
	}
	got, err := checksum.Calculate(destPath, algo)
	if err != nil {
		return "", vxerrors.Wrap(vxerrors.CategoryInstall, "calculate checksum", err)
	}
	if got != want {
		return "", vxerrors.NewChecksumError(spec.Filename, spec.URL, want, got)
	}
	return expected, nil
}

// fetchChecksumFromURL downloads a checksums file and extracts the hash
// whose line matches pattern (typically the artifact's filename), the
// way sha256sum-style manifests list "<hash>  <filename>" per line.
func fetchChecksumFromURL(ctx context.Context, client *http.Client, url, pattern string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", vxerrors.NewHTTPError(url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return extractChecksumLine(string(body), pattern)
}

func extractChecksumLine(body, pattern string) (string, error) {
	lines := splitLines(body)
	for _, line := range lines {
		fields := splitFields(line)
		if len(fields) >= 2 && fields[1] == pattern {
			return fields[0], nil
		}
	}
	return "", errors.New("no checksum entry matching " + pattern)
}

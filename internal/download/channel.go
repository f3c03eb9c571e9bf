// Package download implements the installer's fetch step (spec §4.5 step
// 5, §4.6): it turns a runtime.DownloadSpec into an ordered list of
// candidate URLs, tries each with retry/backoff, and verifies the result
// against a declared checksum. Retry and candidate fallback are owned by
// the same loop so that exhausting retries on a mirror always falls
// through to the next candidate instead of failing the whole download.
package download

import (
	"github.com/vxdev/vx/internal/runtime"
)

// Candidate is one URL to attempt, tagged with a human-readable channel
// name for logging/reporting ("mirror-0", "origin").
type Candidate struct {
	Channel string
	URL     string
}

// Optimizer rewrites an origin URL into a faster mirror, e.g. a CDN
// front for GitHub release assets. It may decline by returning ok=false;
// callers must still try the origin in that case. An Optimizer that
// declines never prevents a download — it only adds a URL to try before
// the origin.
type Optimizer interface {
	Optimize(origin string) (url string, ok bool)
}

// NoopOptimizer never optimizes; Candidates degrades to [origin].
type NoopOptimizer struct{}

func (NoopOptimizer) Optimize(string) (string, bool) { return "", false }

// Candidates builds the ordered fallback chain for spec: the runtime's
// declared mirrors first (in order), then an optimizer-provided mirror
// for the origin (if any and different from the origin URL), then the
// origin itself last.
func Candidates(spec runtime.DownloadSpec, opt Optimizer) []Candidate {
	var out []Candidate
	for i, m := range spec.Mirrors {
		out = append(out, Candidate{Channel: mirrorName(i), URL: m})
	}
	if opt != nil {
		if url, ok := opt.Optimize(spec.URL); ok && url != spec.URL {
			out = append(out, Candidate{Channel: "cdn", URL: url})
		}
	}
	out = append(out, Candidate{Channel: "origin", URL: spec.URL})
	return out
}

func mirrorName(i int) string {
	names := [...]string{"mirror-0", "mirror-1", "mirror-2", "mirror-3"}
	if i < len(names) {
		return names[i]
	}
	return "mirror-n"
}

// Package verify provides an optional signature-verification layer on top
// of the installer's checksum check: when a runtime's DownloadSpec
// declares a runtime.SignatureRef, the configured Verifier checks a
// cosign/sigstore bundle against the downloaded artifact before
// extraction (spec SPEC_FULL.md "Signature verification"). Grounded on
// tomei's internal/verify cosign-over-sigstore-go verifier, re-themed
// from CUE module OCI artifacts onto plain downloaded files.
package verify

import (
	"context"

	"github.com/vxdev/vx/internal/runtime"
)

// Target is one artifact to verify: the local path it was downloaded to,
// plus the signature reference its runtime declared.
type Target struct {
	ArtifactPath string
	Ref          runtime.SignatureRef
}

// Result reports what verification concluded for one Target.
type Result struct {
	Verified   bool
	Skipped    bool
	SkipReason string
}

// Verifier checks a downloaded artifact's signature.
type Verifier interface {
	Verify(ctx context.Context, t Target) (Result, error)
}

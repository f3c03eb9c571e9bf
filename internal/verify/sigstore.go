package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	protobundle "github.com/sigstore/protobuf-specs/gen/pb-go/bundle/v1"
	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/tuf"
	sgverify "github.com/sigstore/sigstore-go/pkg/verify"
	"google.golang.org/protobuf/encoding/protojson"
)

const defaultOIDCIssuer = "https://token.actions.githubusercontent.com"

var _ Verifier = (*SigstoreVerifier)(nil)

// SigstoreVerifier checks a cosign/sigstore bundle against a downloaded
// artifact using the public-good Sigstore trusted root (Fulcio + Rekor).
type SigstoreVerifier struct {
	httpClient *http.Client

	trustedRootOnce sync.Once
	trustedRoot     *root.LiveTrustedRoot
	trustedRootErr  error
}

// NewSigstoreVerifier builds a SigstoreVerifier. The trusted root (TUF
// metadata for Fulcio/Rekor) is fetched lazily on the first Verify call.
func NewSigstoreVerifier() (*SigstoreVerifier, error) {
	return &SigstoreVerifier{httpClient: &http.Client{Timeout: 30 * time.Second}}, nil
}

// Verify fetches t.Ref.BundleURL, verifies it against t.ArtifactPath's
// bytes with the trusted root, and checks the signing certificate's
// identity/issuer against t.Ref. A SignatureRef with no BundleURL skips
// verification rather than failing (not every provider publishes one).
func (v *SigstoreVerifier) Verify(ctx context.Context, t Target) (Result, error) {
	if t.Ref.BundleURL == "" {
		return Result{Skipped: true, SkipReason: "no signature bundle published for this artifact"}, nil
	}

	var b *bundle.Bundle
	var err error
	if strings.HasPrefix(t.Ref.BundleURL, ociSignaturePrefix) {
		b, err = fetchOCIBundle(ctx, strings.TrimPrefix(t.Ref.BundleURL, ociSignaturePrefix))
		if err == nil && b == nil {
			return Result{Skipped: true, SkipReason: "no cosign signature published for this OCI artifact"}, nil
		}
	} else {
		b, err = v.fetchBundle(ctx, t.Ref.BundleURL)
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch signature bundle: %w", err)
	}

	trustedRoot, err := v.getTrustedRoot()
	if err != nil {
		return Result{}, fmt.Errorf("fetch sigstore trusted root: %w", err)
	}

	verifierConfig, err := sgverify.NewVerifier(
		trustedRoot,
		sgverify.WithSignedCertificateTimestamps(1),
		sgverify.WithTransparencyLog(1),
		sgverify.WithIntegratedTimestamps(1),
	)
	if err != nil {
		return Result{}, fmt.Errorf("build sigstore verifier: %w", err)
	}

	issuer := t.Ref.OIDCIssuer
	if issuer == "" {
		issuer = defaultOIDCIssuer
	}
	certIdentity, err := sgverify.NewShortCertificateIdentity(issuer, "", "", t.Ref.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("build certificate identity policy: %w", err)
	}

	artifact, err := os.Open(t.ArtifactPath)
	if err != nil {
		return Result{}, fmt.Errorf("open artifact for signature check: %w", err)
	}
	defer artifact.Close()

	if _, err := verifierConfig.Verify(b, sgverify.NewPolicy(
		sgverify.WithArtifact(artifact),
		sgverify.WithCertificateIdentity(certIdentity),
	)); err != nil {
		return Result{}, fmt.Errorf("signature verification failed: %w", err)
	}

	return Result{Verified: true}, nil
}

// getTrustedRoot returns the cached public-good Sigstore trusted root,
// fetching it on the first call.
func (v *SigstoreVerifier) getTrustedRoot() (*root.LiveTrustedRoot, error) {
	v.trustedRootOnce.Do(func() {
		v.trustedRoot, v.trustedRootErr = root.NewLiveTrustedRoot(tuf.DefaultOptions())
	})
	return v.trustedRoot, v.trustedRootErr
}

func (v *SigstoreVerifier) fetchBundle(ctx context.Context, url string) (*bundle.Bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var pb protobundle.Bundle
	if err := protojson.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("parse sigstore bundle JSON: %w", err)
	}
	b, err := bundle.NewBundle(&pb)
	if err != nil {
		return nil, fmt.Errorf("build sigstore bundle: %w", err)
	}
	return b, nil
}

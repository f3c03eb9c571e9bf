package verify

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	protobundle "github.com/sigstore/protobuf-specs/gen/pb-go/bundle/v1"
	protocommon "github.com/sigstore/protobuf-specs/gen/pb-go/common/v1"
	protorekor "github.com/sigstore/protobuf-specs/gen/pb-go/rekor/v1"
	"github.com/sigstore/sigstore-go/pkg/bundle"
)

// ociSignaturePrefix marks a SignatureRef.BundleURL as an OCI image
// reference rather than a flat bundle URL: some providers (tools
// published alongside a container image, e.g. a CLI also shipped as
// "ghcr.io/org/tool:v1") publish their cosign signature as a sibling OCI
// artifact instead of a downloadable JSON file.
const ociSignaturePrefix = "oci://"

const (
	cosignSignatureKey  = "dev.cosignproject.cosign/signature"
	cosignCertificateKey = "dev.sigstore.cosign/certificate"
	cosignChainKey       = "dev.sigstore.cosign/chain"
	cosignBundleKey      = "dev.sigstore.cosign/bundle"
)

type cosignRekorEntry struct {
	SignedEntryTimestamp string `json:"SignedEntryTimestamp"`
	Payload               struct {
		Body           string `json:"body"`
		IntegratedTime int64  `json:"integratedTime"`
		LogIndex       int64  `json:"logIndex"`
		LogID          string `json:"logID"`
	} `json:"Payload"`
}

type rekorBodyMeta struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
}

const maxSignaturePayloadSize = 1 << 20

// cosignSigTag returns the cosign signature tag for an image digest:
// cosign stores signatures at sha256-<hex>.sig alongside the image.
func cosignSigTag(digest ociv1.Hash) string {
	return strings.ReplaceAll(digest.String(), ":", "-") + ".sig"
}

// fetchOCIBundle resolves ref (an "oci://" SignatureRef with the scheme
// stripped) to its cosign signature bundle, the way tomei's
// internal/verify looks up a CUE module's signature tag. Returns nil,nil
// for an unsigned artifact rather than failing.
func fetchOCIBundle(ctx context.Context, imageRef string) (*bundle.Bundle, error) {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("parse OCI reference %q: %w", imageRef, err)
	}

	desc, err := remote.Head(ref, remote.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", ref, err)
	}

	sigRef := ref.Context().Tag(cosignSigTag(desc.Digest))
	sigImg, err := remote.Image(sigRef, remote.WithContext(ctx))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch signature image for %s: %w", ref, err)
	}

	manifest, err := sigImg.Manifest()
	if err != nil {
		return nil, fmt.Errorf("read signature manifest: %w", err)
	}

	for _, layerDesc := range manifest.Layers {
		annotations := layerDesc.Annotations
		if annotations == nil {
			continue
		}
		if _, hasSig := annotations[cosignSignatureKey]; hasSig {
			layer, err := sigImg.LayerByDigest(layerDesc.Digest)
			if err != nil {
				continue
			}
			rc, err := layer.Uncompressed()
			if err != nil {
				continue
			}
			payload, err := io.ReadAll(io.LimitReader(rc, maxSignaturePayloadSize))
			rc.Close()
			if err != nil {
				continue
			}
			b, err := bundleFromCosignAnnotations(annotations, payload)
			if err != nil {
				continue
			}
			return b, nil
		}
	}
	return nil, nil
}

// bundleFromCosignAnnotations reassembles cosign v2's per-annotation
// signature/certificate/Rekor-entry triple into the sigstore-go protobuf
// Bundle shape SigstoreVerifier.Verify expects.
func bundleFromCosignAnnotations(annotations map[string]string, payload []byte) (*bundle.Bundle, error) {
	sigB64, ok := annotations[cosignSignatureKey]
	if !ok {
		return nil, fmt.Errorf("missing %s annotation", cosignSignatureKey)
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	certPEM, ok := annotations[cosignCertificateKey]
	if !ok {
		return nil, fmt.Errorf("missing %s annotation", cosignCertificateKey)
	}
	certs, err := parsePEMCertificates(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse leaf certificate: %w", err)
	}
	if chainPEM, ok := annotations[cosignChainKey]; ok && chainPEM != "" {
		if chainCerts, err := parsePEMCertificates(chainPEM); err == nil {
			certs = append(certs, chainCerts...)
		}
	}

	rekorJSON, ok := annotations[cosignBundleKey]
	if !ok {
		return nil, fmt.Errorf("missing %s annotation", cosignBundleKey)
	}
	var entry cosignRekorEntry
	if err := json.Unmarshal([]byte(rekorJSON), &entry); err != nil {
		return nil, fmt.Errorf("parse rekor entry: %w", err)
	}
	set, err := base64.StdEncoding.DecodeString(entry.SignedEntryTimestamp)
	if err != nil {
		return nil, fmt.Errorf("decode signed entry timestamp: %w", err)
	}
	logIDBytes, err := hex.DecodeString(entry.Payload.LogID)
	if err != nil {
		return nil, fmt.Errorf("decode log id: %w", err)
	}
	bodyBytes, err := base64.StdEncoding.DecodeString(entry.Payload.Body)
	if err != nil {
		return nil, fmt.Errorf("decode rekor body: %w", err)
	}
	var bodyMeta rekorBodyMeta
	if err := json.Unmarshal(bodyBytes, &bodyMeta); err != nil {
		return nil, fmt.Errorf("parse rekor body kind/version: %w", err)
	}

	digest := sha256.Sum256(payload)
	pb := &protobundle.Bundle{
		MediaType: "application/vnd.dev.sigstore.bundle+json;version=0.1",
		VerificationMaterial: &protobundle.VerificationMaterial{
			Content: &protobundle.VerificationMaterial_X509CertificateChain{
				X509CertificateChain: &protocommon.X509CertificateChain{Certificates: certs},
			},
			TlogEntries: []*protorekor.TransparencyLogEntry{{
				LogIndex:          entry.Payload.LogIndex,
				LogId:             &protocommon.LogId{KeyId: logIDBytes},
				KindVersion:       &protorekor.KindVersion{Kind: bodyMeta.Kind, Version: bodyMeta.APIVersion},
				IntegratedTime:    entry.Payload.IntegratedTime,
				InclusionPromise:  &protorekor.InclusionPromise{SignedEntryTimestamp: set},
				CanonicalizedBody: bodyBytes,
			}},
		},
		Content: &protobundle.Bundle_MessageSignature{
			MessageSignature: &protocommon.MessageSignature{
				MessageDigest: &protocommon.HashOutput{Algorithm: protocommon.HashAlgorithm_SHA2_256, Digest: digest[:]},
				Signature:     sigBytes,
			},
		},
	}
	return bundle.NewBundle(pb)
}

func parsePEMCertificates(pemData string) ([]*protocommon.X509Certificate, error) {
	var certs []*protocommon.X509Certificate
	rest := []byte(pemData)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		certs = append(certs, &protocommon.X509Certificate{RawBytes: block.Bytes})
	}
	if len(certs) == 0 {
		return nil, errors.New("no CERTIFICATE blocks found in PEM data")
	}
	return certs, nil
}

func isNotFoundError(err error) bool {
	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == http.StatusNotFound
	}
	return false
}

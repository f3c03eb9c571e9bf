package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	vxerrors "github.com/vxdev/vx/internal/errors"
	vxgit "github.com/vxdev/vx/internal/git"
)

// fetchGitManifest clones ref.URL (at ref.Rev, if set) into a scratch
// checkout and returns the path to the manifest file within it, verifying
// ref.Integrity against the manifest's contents first when set (spec
// §4.9 "mandatory integrity hash when the root policy demands").
func fetchGitManifest(ref GitRef) (string, error) {
	dir, err := os.MkdirTemp("", "vx-extends-*")
	if err != nil {
		return "", vxerrors.Wrap(vxerrors.CategoryConfig, "create scratch checkout dir", err)
	}

	opts := &vxgit.CloneOptions{Branch: ref.Rev, Depth: 1}
	if err := vxgit.CloneURL(context.Background(), ref.URL, dir, opts); err != nil {
		return "", vxerrors.Wrap(vxerrors.CategoryConfig, "clone extends source "+ref.URL, err)
	}

	manifestPath := filepath.Join(dir, ref.Path)
	if ref.Path == "" {
		manifestPath = filepath.Join(dir, FileName)
	}

	if ref.Integrity != "" {
		if err := verifyIntegrity(manifestPath, ref.Integrity); err != nil {
			return "", err
		}
	}
	return manifestPath, nil
}

func verifyIntegrity(path, expected string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return vxerrors.Wrap(vxerrors.CategoryConfig, "read fetched manifest for integrity check", err)
	}
	sum := sha256.Sum256(data)
	got := "sha256:" + hex.EncodeToString(sum[:])
	if got != expected {
		return vxerrors.New(vxerrors.CategoryConfig, fmt.Sprintf("extends integrity mismatch: expected %s, got %s", expected, got))
	}
	return nil
}

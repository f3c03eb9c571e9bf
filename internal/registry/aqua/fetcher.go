// Package aqua adapts the aquaproj/aqua community registry into a vx
// runtime.Runtime, so any package already described there (owner/repo
// plus an aqua-style package_info.yaml) is installable without vx
// shipping its own manifest for it.
package aqua

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	vxgithub "github.com/vxdev/vx/internal/github"
)

const (
	defaultBaseURL     = "https://raw.githubusercontent.com/aquaproj/aqua-registry"
	aquaRegistryOwner  = "aquaproj"
	aquaRegistryRepo   = "aqua-registry"
	defaultHTTPTimeout = 30 * time.Second
)

// Fetcher retrieves package definitions (`registry.yaml`) from a pinned
// ref of aqua-registry, caching each on disk so a repeat resolve of the
// same (ref, pkg) never re-hits the network.
type Fetcher struct {
	cacheDir   string
	httpClient *http.Client
	baseURL    string
}

// NewFetcher builds a Fetcher rooted at cacheDir, using vx's shared
// GitHub client so aqua-registry lookups benefit from the same
// GITHUB_TOKEN/GH_TOKEN rate-limit relief as the rest of vx's
// GitHub-backed version resolution (spec §6).
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		cacheDir:   cacheDir,
		httpClient: vxgithub.NewHTTPClient(vxgithub.TokenFromEnv()),
		baseURL:    defaultBaseURL,
	}
}

// WithHTTPClient overrides the HTTP client (tests point this at a
// httptest.Server).
func (f *Fetcher) WithHTTPClient(client *http.Client) *Fetcher {
	f.httpClient = client
	return f
}

// WithBaseURL overrides the registry mirror base (tests point this at
// a local fixture server instead of raw.githubusercontent.com).
func (f *Fetcher) WithBaseURL(base string) *Fetcher {
	f.baseURL = base
	return f
}

// validatePathComponent rejects a path segment that could escape
// cacheDir or the constructed registry URL via "..", a leading slash,
// or any other shape path.Clean would normalize away.
func validatePathComponent(s string) error {
	if cleaned := path.Clean(s); cleaned != s || strings.Contains(s, "..") || strings.HasPrefix(s, "/") {
		return fmt.Errorf("invalid path component: %s", s)
	}
	return nil
}

// pkgParts splits an "owner/repo" package identifier and validates both
// halves, returning them separately for callers that need the owner and
// repo individually (e.g. release-tag lookups).
func pkgParts(pkg string) (owner, repo string, err error) {
	parts := strings.Split(pkg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid package format: %s (expected owner/repo)", pkg)
	}
	for _, part := range parts {
		if err := validatePathComponent(part); err != nil {
			return "", "", fmt.Errorf("invalid package: %w", err)
		}
	}
	return parts[0], parts[1], nil
}

// cacheFilePath constructs the on-disk cache location for one (ref,
// pkg) registry entry, guarding every component against traversal.
func (f *Fetcher) cacheFilePath(ref, pkg string) (string, error) {
	if err := validatePathComponent(ref); err != nil {
		return "", fmt.Errorf("invalid ref: %w", err)
	}
	owner, repo, err := pkgParts(pkg)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.cacheDir, ref, "pkgs", owner, repo, "registry.yaml"), nil
}

// registryURL builds the raw.githubusercontent.com URL for one (ref,
// pkg)'s registry.yaml, escaping every path segment through path.Join
// rather than string concatenation.
func (f *Fetcher) registryURL(ref, pkg string) (string, error) {
	base, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	base.Path = path.Join(base.Path, ref, "pkgs", pkg, "registry.yaml")
	return base.String(), nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, ref, pkg string) ([]byte, error) {
	registryURL, err := f.registryURL(ref, pkg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, registryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch aqua-registry entry for %s@%s: %w", pkg, ref, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("package not found in aqua-registry: %s", pkg)
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("aqua-registry returned status %d for %s", resp.StatusCode, pkg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read aqua-registry response for %s: %w", pkg, err)
	}
	return data, nil
}

// writeCacheAtomic persists data at path atomically (write-tmp-then-rename),
// the same idiom the installer uses for the store proper — a cache miss
// here only costs a re-fetch, never a corrupt half-written file.
func writeCacheAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache tmp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache tmp file: %w", err)
	}
	return nil
}

// Fetch returns the first entry of the `packages` list in pkg's
// registry.yaml at registry ref, preferring a cached copy under cacheDir
// and falling back to the network on a miss.
func (f *Fetcher) Fetch(ctx context.Context, ref, pkg string) (*PackageInfo, error) {
	cachePath, err := f.cacheFilePath(ref, pkg)
	if err != nil {
		return nil, fmt.Errorf("build cache path for %s@%s: %w", pkg, ref, err)
	}

	if data, err := os.ReadFile(cachePath); err == nil {
		var doc struct {
			Packages []PackageInfo `yaml:"packages"`
		}
		if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Packages) > 0 {
			slog.Debug("aqua registry cache hit", "package", pkg, "ref", ref)
			return &doc.Packages[0], nil
		}
		slog.Debug("aqua registry cache entry unreadable, refetching", "package", pkg, "ref", ref)
	}

	slog.Debug("aqua registry cache miss", "package", pkg, "ref", ref)
	data, err := f.fetchRemote(ctx, ref, pkg)
	if err != nil {
		return nil, err
	}

	if err := writeCacheAtomic(cachePath, data); err != nil {
		slog.Warn("failed to cache aqua-registry entry", "path", cachePath, "error", err)
	}

	var doc struct {
		Packages []PackageInfo `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse aqua-registry entry for %s: %w", pkg, err)
	}
	if len(doc.Packages) == 0 {
		return nil, fmt.Errorf("aqua-registry entry for %s lists no packages", pkg)
	}
	return &doc.Packages[0], nil
}

// LatestRegistryRef returns the latest released tag of aqua-registry
// itself, used to pin a known-good registry commit (see sync.go)
// rather than tracking its default branch forever.
func (f *Fetcher) LatestRegistryRef(ctx context.Context) (string, error) {
	return vxgithub.GetLatestRelease(ctx, f.httpClient, aquaRegistryOwner, aquaRegistryRepo, "")
}

// LatestPackageVersion returns the latest GitHub release tag for one
// aqua-registry package, used when a package's registry entry declares
// no explicit version source and the package's own releases are the
// only version authority.
func (f *Fetcher) LatestPackageVersion(ctx context.Context, pkg string) (string, error) {
	owner, repo, err := pkgParts(pkg)
	if err != nil {
		return "", err
	}
	return vxgithub.GetLatestRelease(ctx, f.httpClient, owner, repo, "")
}

package registry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	vxerrors "github.com/vxdev/vx/internal/errors"
	vxgithub "github.com/vxdev/vx/internal/github"
	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/version"
)

// Manifest is the on-disk declarative form of a Runtime: a provider
// author writes one of these instead of a Go implementation when the
// tool fits a templated-URL, GitHub-releases-style install.
type Manifest struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`

	// VersionsURL is a GitHub releases or tags API endpoint (any endpoint
	// returning a JSON array of objects carrying tag_name or name) used to
	// enumerate versions.
	VersionsURL string `yaml:"versions_url"`
	// LTSVersions pins specific versions as LTS when the upstream has no
	// machine-readable LTS flag of its own.
	LTSVersions []string `yaml:"lts_versions,omitempty"`

	// URLTemplate is expanded with {{version}}, {{os}}, {{arch}} to build
	// the download URL. {{os}} and {{arch}} are first passed through
	// OSAliases/ArchAliases.
	URLTemplate  string            `yaml:"url_template"`
	Mirrors      []string          `yaml:"mirrors,omitempty"`
	OSAliases    map[string]string `yaml:"os_aliases,omitempty"`
	ArchAliases  map[string]string `yaml:"arch_aliases,omitempty"`
	Archive      string            `yaml:"archive"`
	StripPrefix  string            `yaml:"strip_prefix,omitempty"`
	Executables  []string          `yaml:"executables"`
	ChecksumURL  string            `yaml:"checksum_url,omitempty"`
	Dependencies []ManifestDep     `yaml:"dependencies,omitempty"`

	// SupportedPlatforms restricts installs to a subset; empty means
	// "every platform the URL template can fill in".
	SupportedPlatforms []string `yaml:"supported_platforms,omitempty"`
}

// ManifestDep is a declared dependency edge inside a Manifest.
type ManifestDep struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

// ParseManifestBytes parses a single provider manifest from raw YAML
// bytes (used for the embedded builtin catalog, which has no filesystem
// path of its own).
func ParseManifestBytes(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, vxerrors.NewValidationError("provider manifest", "name", "non-empty string", "\"\"")
	}
	return m, nil
}

// LoadManifestFile parses a single provider manifest from path.
func LoadManifestFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Name == "" {
		return Manifest{}, vxerrors.NewValidationError(path, "name", "non-empty string", "\"\"")
	}
	return m, nil
}

// LoadManifestDir loads every *.yaml/*.yml manifest in dir, rejecting
// path-traversal filenames the same way an aqua-style registry cache
// guards its own paths.
func LoadManifestDir(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir %s: %w", dir, err)
	}

	var manifests []Manifest
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Base(name) != name || strings.Contains(name, "..") {
			return nil, fmt.Errorf("invalid manifest file name: %s", name)
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := LoadManifestFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}

// declarativeRuntime adapts a Manifest into a runtime.Runtime by
// templating URLs and calling out to VersionsURL for version enumeration.
type declarativeRuntime struct {
	m          Manifest
	httpClient *http.Client
}

// NewRuntime builds a runtime.Runtime backed by a declarative manifest.
// Version enumeration goes through a GitHub-aware client (internal/github)
// that attaches GITHUB_TOKEN/GH_TOKEN when talking to api.github.com, so a
// fleet of tools sharing the same upstream doesn't trip the unauthenticated
// 60-requests-per-hour rate limit (spec §7 "on rate-limit: set an auth
// token").
func NewRuntime(m Manifest) runtime.Runtime {
	client := vxgithub.NewHTTPClient(vxgithub.TokenFromEnv())
	client.Timeout = 30 * time.Second
	return &declarativeRuntime{m: m, httpClient: client}
}

func (d *declarativeRuntime) Name() string      { return d.m.Name }
func (d *declarativeRuntime) Aliases() []string { return d.m.Aliases }

func (d *declarativeRuntime) SupportsPlatform(p platform.Platform) bool {
	if len(d.m.SupportedPlatforms) == 0 {
		return true
	}
	for _, s := range d.m.SupportedPlatforms {
		if s == p.String() {
			return true
		}
	}
	return false
}

func (d *declarativeRuntime) Capabilities() runtime.Capabilities {
	return runtime.Capabilities{
		EnumerateVersions: d.m.VersionsURL != "",
		ResolveConstraint: true,
		BuildDownloadURL:  d.m.URLTemplate != "",
		DescribeLayout:    len(d.m.Executables) > 0,
		DeclareDeps:       len(d.m.Dependencies) > 0,
		ContributeEnv:     true,
	}
}

func (d *declarativeRuntime) FetchVersions(ctx context.Context) ([]version.Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.m.VersionsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, vxerrors.NewNetworkError(d.m.VersionsURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		herr := vxerrors.NewHTTPError(d.m.VersionsURL, resp.StatusCode)
		herr.Base.Hint = "GitHub is rate-limiting unauthenticated requests; set GITHUB_TOKEN or GH_TOKEN and retry."
		return nil, herr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, vxerrors.NewHTTPError(d.m.VersionsURL, resp.StatusCode)
	}

	tags, err := decodeGitHubTags(resp.Body)
	if err != nil {
		return nil, err
	}

	ltsSet := make(map[string]bool, len(d.m.LTSVersions))
	for _, v := range d.m.LTSVersions {
		ltsSet[v] = true
	}

	infos := make([]version.Info, 0, len(tags))
	for _, tag := range tags {
		v := strings.TrimPrefix(tag, "v")
		infos = append(infos, version.Info{
			Version:    v,
			LTS:        ltsSet[v],
			Prerelease: strings.Contains(v, "-"),
		})
	}
	return infos, nil
}

func (d *declarativeRuntime) ResolveConstraint(ctx context.Context, c version.Constraint) (version.Version, error) {
	infos, err := d.FetchVersions(ctx)
	if err != nil {
		return version.Version{}, err
	}
	return c.Select(d.m.Name, infos)
}

func (d *declarativeRuntime) DownloadSpec(v version.Version, p platform.Platform) (runtime.DownloadSpec, error) {
	os := platform.MapOS(p.OS, d.m.OSAliases)
	arch := platform.MapArch(p.Arch, d.m.ArchAliases)
	url := expandTemplate(d.m.URLTemplate, v.String(), os, arch)

	mirrors := make([]string, len(d.m.Mirrors))
	for i, m := range d.m.Mirrors {
		mirrors[i] = expandTemplate(m, v.String(), os, arch)
	}

	spec := runtime.DownloadSpec{
		URL:      url,
		Mirrors:  mirrors,
		Filename: filepath.Base(url),
		Archive:  d.m.Archive,
	}
	if d.m.ChecksumURL != "" {
		spec.Checksum = runtime.ChecksumRef{
			URL:         expandTemplate(d.m.ChecksumURL, v.String(), os, arch),
			FilePattern: spec.Filename,
		}
	}
	return spec, nil
}

func (d *declarativeRuntime) InstallLayout(v version.Version, p platform.Platform) (runtime.InstallLayout, error) {
	exeSuffix := p.ExeSuffix()
	os := platform.MapOS(p.OS, d.m.OSAliases)
	arch := platform.MapArch(p.Arch, d.m.ArchAliases)
	layout := runtime.InstallLayout{StripPrefix: expandTemplate(d.m.StripPrefix, v.String(), os, arch)}
	for _, exe := range d.m.Executables {
		layout.Executables = append(layout.Executables, runtime.ExecutablePath{
			Name: strings.TrimSuffix(filepath.Base(exe), exeSuffix),
			Path: exe + exeSuffix,
		})
	}
	return layout, nil
}

func (d *declarativeRuntime) Dependencies(v version.Version) []runtime.Spec {
	deps := make([]runtime.Spec, len(d.m.Dependencies))
	for i, dep := range d.m.Dependencies {
		deps[i] = runtime.Spec{Name: dep.Name, Constraint: dep.Constraint}
	}
	return deps
}

func (d *declarativeRuntime) ContributeEnv(v version.Version, installDir string) map[string]string {
	return map[string]string{
		"PATH": filepath.Join(installDir, "bin"),
	}
}

// expandTemplate performs the small {{version}}/{{os}}/{{arch}} substitution
// provider manifests use to express a download URL template.
func expandTemplate(tmpl, version, os, arch string) string {
	replacer := strings.NewReplacer(
		"{{version}}", version,
		"{{os}}", os,
		"{{arch}}", arch,
	)
	return replacer.Replace(tmpl)
}

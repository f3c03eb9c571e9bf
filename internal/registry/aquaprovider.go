package registry

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	vxerrors "github.com/vxdev/vx/internal/errors"
	vxgithub "github.com/vxdev/vx/internal/github"
	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/registry/aqua"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/version"
)

// defaultAquaRegistryRef is used when a user hasn't synced a pinned ref
// yet (see aqua.SyncRegistry); new enough to cover the packages vx's
// docs reference.
const defaultAquaRegistryRef = "v4.465.0"

// aquaRuntime adapts one community aqua-registry package ("owner/repo",
// e.g. "cli/cli") into a Runtime: version enumeration falls back to the
// package's GitHub tags, DownloadSpec delegates to aqua.Resolver's
// registry.yaml interpretation instead of vx's own url_template Manifest,
// and InstallLayout declares a single executable named after the repo
// (plus the platform's executable suffix). Grounded on tomei's aqua package (ported
// verbatim from aquaproj/aqua's registry-config schema) plus
// declarativeRuntime's GitHub-tags version source.
type aquaRuntime struct {
	pkg        string
	ref        aqua.RegistryRef
	resolver   *aqua.Resolver
	httpClient *http.Client
}

// NewAquaRuntime builds a Runtime backed by the aqua-registry package
// pkg ("owner/repo"), pinned to registry ref (e.g. "v4.465.0"; pass ""
// for defaultAquaRegistryRef), caching fetched package_info.yaml under
// cacheDir.
func NewAquaRuntime(pkg, ref, cacheDir string) runtime.Runtime {
	if ref == "" {
		ref = defaultAquaRegistryRef
	}
	client := vxgithub.NewHTTPClient(vxgithub.TokenFromEnv())
	client.Timeout = 30 * time.Second
	return &aquaRuntime{
		pkg:        pkg,
		ref:        aqua.RegistryRef(ref),
		resolver:   aqua.NewResolver(cacheDir, client),
		httpClient: client,
	}
}

func (a *aquaRuntime) Name() string { return a.pkg }

func (a *aquaRuntime) Aliases() []string {
	if i := strings.LastIndex(a.pkg, "/"); i >= 0 && i+1 < len(a.pkg) {
		return []string{a.pkg[i+1:]}
	}
	return nil
}

// SupportsPlatform always reports true: aqua-registry's supported_envs
// gate is enforced inside ResolveWithOS itself (an unsupported platform
// surfaces as a DownloadSpec error, not a registration-time rejection).
func (a *aquaRuntime) SupportsPlatform(platform.Platform) bool { return true }

func (a *aquaRuntime) Capabilities() runtime.Capabilities {
	return runtime.Capabilities{
		EnumerateVersions: true,
		ResolveConstraint: true,
		BuildDownloadURL:  true,
		DescribeLayout:    true,
		ContributeEnv:     true,
	}
}

// FetchVersions lists the package's GitHub tags: aqua-registry describes
// how to build a download URL for a version, not which versions exist,
// so version discovery goes straight to the source repo the same way
// declarativeRuntime.FetchVersions does.
func (a *aquaRuntime) FetchVersions(ctx context.Context) ([]version.Info, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/tags", a.pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, vxerrors.NewHTTPError(url, resp.StatusCode)
	}
	tags, err := decodeGitHubTags(resp.Body)
	if err != nil {
		return nil, err
	}
	infos := make([]version.Info, 0, len(tags))
	for _, tag := range tags {
		v := strings.TrimPrefix(tag, "v")
		infos = append(infos, version.Info{Version: v, Prerelease: strings.Contains(v, "-")})
	}
	return infos, nil
}

func (a *aquaRuntime) ResolveConstraint(ctx context.Context, c version.Constraint) (version.Version, error) {
	infos, err := a.FetchVersions(ctx)
	if err != nil {
		return version.Version{}, err
	}
	return c.Select(a.pkg, infos)
}

// DownloadSpec resolves v through the aqua-registry's package_info.yaml,
// which (unlike a vx Manifest's url_template) may itself require a
// network fetch the first time this package/ref pair is seen; aqua.Resolver
// caches that fetch on disk so repeat calls are free.
func (a *aquaRuntime) DownloadSpec(v version.Version, p platform.Platform) (runtime.DownloadSpec, error) {
	resolved, err := a.resolver.ResolveWithOS(context.Background(), a.ref, a.pkg, v.String(), p.OS, p.Arch)
	if err != nil {
		return runtime.DownloadSpec{}, vxerrors.NewRegistryError("aqua", "resolve package", err).WithPackage(a.pkg).WithVersion(v.String())
	}
	if len(resolved.Errors) > 0 {
		return runtime.DownloadSpec{}, vxerrors.NewRegistryError("aqua", strings.Join(resolved.Errors, "; "), nil).WithPackage(a.pkg).WithVersion(v.String())
	}

	spec := runtime.DownloadSpec{
		URL:      resolved.URL,
		Filename: filepath.Base(resolved.URL),
		Archive:  string(resolved.Format),
	}
	if resolved.ChecksumURL != "" {
		spec.Checksum = runtime.ChecksumRef{URL: resolved.ChecksumURL, FilePattern: spec.Filename}
	}
	return spec, nil
}

func (a *aquaRuntime) InstallLayout(v version.Version, p platform.Platform) (runtime.InstallLayout, error) {
	name := a.Name()
	if aliases := a.Aliases(); len(aliases) > 0 {
		name = aliases[0]
	}
	exe := name + p.ExeSuffix()
	return runtime.InstallLayout{
		Executables: []runtime.ExecutablePath{{Name: name, Path: exe}},
	}, nil
}

func (a *aquaRuntime) Dependencies(version.Version) []runtime.Spec { return nil }

func (a *aquaRuntime) ContributeEnv(v version.Version, installDir string) map[string]string {
	return map[string]string{"PATH": installDir}
}

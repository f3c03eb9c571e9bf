package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vxdev/vx/internal/config"
	"github.com/vxdev/vx/internal/download"
	"github.com/vxdev/vx/internal/installer"
	"github.com/vxdev/vx/internal/paths"
	"github.com/vxdev/vx/internal/registry"
	"github.com/vxdev/vx/internal/reporter"
	"github.com/vxdev/vx/internal/resolver"
	"github.com/vxdev/vx/internal/runtime"
)

// core bundles the wiring every subcommand needs: a Paths-rooted
// Registry/Installer/Resolver plus the loaded project manifest. Built
// fresh per-invocation (spec §5 "each invocation is a single tenant; no
// long-lived daemon").
type core struct {
	paths    *paths.Paths
	registry *registry.Registry
	inst     *installer.Installer
	resolver *resolver.Resolver
	manifest *config.Manifest
	reporter reporter.Reporter
	console  *reporter.Console
}

// newCore wires the stack described in SPEC_FULL.md's DOMAIN STACK
// table: Paths rooted at VX_HOME/~/.vx, the builtin provider catalog
// plus any user manifests under paths.Config()/registry.d, a Downloader
// with spec §5's default timeouts, and a Resolver/Installer pair sharing
// one Console Reporter.
func newCore(w io.Writer) (*core, error) {
	p, err := paths.New()
	if err != nil {
		return nil, fmt.Errorf("resolve vx root: %w", err)
	}
	for _, dir := range []string{p.Root(), p.Bin(), p.CacheDownloads(), p.CacheResolutions(), p.Tmp(), p.Locks(), p.Config()} {
		if err := paths.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	reg := registry.New()
	if err := reg.RegisterBuiltins(); err != nil {
		return nil, err
	}
	if manifests, err := registry.LoadManifestDir(userRegistryDir(p)); err == nil {
		for _, m := range manifests {
			_ = reg.Register(registry.NewRuntime(m))
		}
	}
	for _, pkg := range loadAquaPackages(p) {
		_ = reg.RegisterWithPriority(registry.NewAquaRuntime(pkg, "", aquaCacheDir(p)), runtime.PriorityLow)
	}

	console := reporter.NewConsole(w, flagVerbose)
	var rep reporter.Reporter = console

	dl := download.New(download.Options{})
	inst := installer.New(p, dl, rep)
	res := resolver.New(reg, inst, p, rep)

	manifestPath := config.Find(".")
	var manifest *config.Manifest
	if manifestPath != "" {
		manifest, err = config.Load(manifestPath)
		if err != nil {
			return nil, err
		}
	} else {
		manifest = &config.Manifest{Defaults: config.DefaultDefaults()}
	}

	return &core{
		paths:    p,
		registry: reg,
		inst:     inst,
		resolver: res,
		manifest: manifest,
		reporter: rep,
		console:  console,
	}, nil
}

// userRegistryDir is where a user may drop their own provider manifests
// (YAML files, spec §4.4 "declared... as data (TOML manifests)" —
// generalized to whichever markup format the builtin catalog itself
// uses, YAML, per SPEC_FULL.md's DOMAIN STACK table) to extend or
// override the builtin catalog.
func userRegistryDir(p *paths.Paths) string {
	return filepath.Join(p.Config(), "registry.d")
}

// aquaPackagesFile is a user-maintained opt-in list of community
// aqua-registry packages ("owner/repo", one per line, "#" comments and
// blank lines ignored) to register alongside the builtin catalog. There
// is no vx.toml table for this: unlike [tools] (a per-project version
// pin), this is global-installation-wide, the same way registry.d is.
func aquaPackagesFile(p *paths.Paths) string {
	return filepath.Join(p.Config(), "aqua-packages.txt")
}

// aquaCacheDir is where fetched aqua-registry package_info.yaml/
// registry.yaml documents are cached, alongside vx's other caches
// (spec §3 store layout: root/cache/<kind>).
func aquaCacheDir(p *paths.Paths) string {
	return filepath.Join(p.Root(), "cache", "aqua")
}

// loadAquaPackages reads aquaPackagesFile, returning the list of
// "owner/repo" package names a user has opted into. A missing file is
// not an error: aqua packages are opt-in, so most installs never need
// this list to exist at all.
func loadAquaPackages(p *paths.Paths) []string {
	f, err := os.Open(aquaPackagesFile(p))
	if err != nil {
		return nil
	}
	defer f.Close()

	var pkgs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pkgs = append(pkgs, line)
	}
	return pkgs
}

// splitToolSpec parses "tool@constraint" (or bare "tool") as written on
// the command line.
func splitToolSpec(spec string) (tool, constraint string) {
	if i := strings.IndexByte(spec, '@'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

// constraintFor resolves the effective constraint for tool: an explicit
// one on the command line wins, else the project manifest's [tools]
// entry, else "" (the resolver's own "latest" default), per spec §4.7
// step 3.
func (c *core) constraintFor(tool, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.manifest != nil {
		if v, ok := c.manifest.Tools[tool]; ok {
			return v
		}
	}
	return ""
}

func (c *core) resolve(ctx context.Context, tool, constraint string, args []string) (*resolver.Graph, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	manifestDigest := ""
	if c.manifest != nil && c.manifest.Path != "" {
		manifestDigest = resolver.ManifestDigest(c.manifest.Path)
	}
	req := resolver.Request{Tool: tool, Constraint: constraint, Args: args, Cwd: cwd}
	return c.resolver.Resolve(ctx, req, c.registry.Fingerprint(), manifestDigest)
}

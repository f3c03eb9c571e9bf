package resolver

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/installer"
	"github.com/vxdev/vx/internal/paths"
	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/registry"
	"github.com/vxdev/vx/internal/reporter"
	"github.com/vxdev/vx/internal/resolvercache"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/version"
)

// maxParallelInstalls bounds how many independent nodes of one install
// wave run at once (spec §5): enough to overlap I/O-bound downloads
// without hammering upstream CDNs from a single invocation.
const maxParallelInstalls = 4

// Request is the parsed "resolve this tool" ask: the tool name, an
// explicit constraint from `tool@constraint` or "" to fall through to
// config/default, and the inputs that key the resolution cache.
type Request struct {
	Tool       string
	Constraint string
	Args       []string
	Cwd        string
}

// Resolver builds and installs ResolutionGraphs.
type Resolver struct {
	registry  *registry.Registry
	installer *installer.Installer
	paths     *paths.Paths
	cache     *resolvercache.Cache
	reporter  reporter.Reporter
	noCache   bool
	forceTool string
}

// New builds a Resolver over reg, installing through inst and caching
// resolutions under p.CacheResolutions().
func New(reg *registry.Registry, inst *installer.Installer, p *paths.Paths, rep reporter.Reporter) *Resolver {
	if rep == nil {
		rep = reporter.Noop{}
	}
	return &Resolver{
		registry:  reg,
		installer: inst,
		paths:     p,
		cache:     resolvercache.New(p.CacheResolutions()),
		reporter:  rep,
	}
}

// DisableCache turns off the resolution cache, forcing a full resolve
// (used by `vx install --force` and tests).
func (r *Resolver) DisableCache(v bool) { r.noCache = v }

// ForceReinstall marks tool (the top-level request, not its dependencies)
// for unconditional reinstall, implementing the Open Questions decision
// that `vx install --force` means "remove and reinstall" (spec §9).
func (r *Resolver) ForceReinstall(tool string) { r.forceTool = tool }

// defaultConstraintFor returns the constraint for a tool with no constraint named
// anywhere: spec §4.2 "the runtime's default (typically latest)".
func defaultConstraintFor(string) string { return "latest" }

// Resolve implements spec §4.7: cache lookup, DAG expansion, version
// resolution, and (for anything not already installed) topological
// install in waves, the nodes of one wave installed concurrently (at most
// maxParallelInstalls at a time). Returns the full graph; req.Tool names the target
// node within it.
func (r *Resolver) Resolve(ctx context.Context, req Request, registryFingerprint, manifestDigest string) (*Graph, error) {
	key := resolvercache.Key(platform.Current().String(), req.Cwd, req.Args, manifestDigest, registryFingerprint)

	if !r.noCache {
		if g, ok := resolvercache.Load[*Graph](r.cache, key); ok && r.allInstalled(g) {
			r.reporter.Report(reporter.Event{Kind: reporter.KindCacheHit})
			return g, nil
		}
	}

	rootRT, err := r.registry.Lookup(req.Tool)
	if err != nil {
		return nil, err
	}

	constraintStr := req.Constraint
	if constraintStr == "" {
		constraintStr = defaultConstraintFor(req.Tool)
	}
	rootConstraint, err := version.ParseConstraint(constraintStr)
	if err != nil {
		return nil, err
	}

	nodes, order, err := buildDAG(r.registry.Lookup, req.Tool, rootConstraint)
	if err != nil {
		return nil, err
	}

	versionCache := map[string][]version.Info{}
	resolved := make(map[string]version.Version, len(nodes))
	rts := make(map[string]runtime.Runtime, len(nodes))

	for _, name := range order {
		node := nodes[name]
		rt, err := r.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		rts[name] = rt

		if !rt.SupportsPlatform(platform.Current()) {
			return nil, vxerrors.NewUnsupportedPlatformError(name, platform.Current().OS, platform.Current().Arch)
		}

		var v version.Version
		if node.constraint.Kind() == version.KindSystem {
			v = version.MustParse(version.System)
		} else {
			infos, ok := versionCache[name]
			if !ok {
				infos, err = rt.FetchVersions(ctx)
				if err != nil {
					return nil, err
				}
				versionCache[name] = infos
			}
			v, err = node.constraint.Select(name, infos)
			if err != nil {
				return nil, err
			}
		}
		resolved[name] = v
	}

	graph := &Graph{Order: order, Nodes: map[string]ResolvedRuntime{}, Target: req.Tool}
	var mu sync.Mutex
	for _, wave := range installLevels(nodes, order) {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(maxParallelInstalls)
		for _, name := range wave {
			name := name
			v := resolved[name]
			rt := rts[name]

			if v.IsSystem() {
				mu.Lock()
				graph.Nodes[name] = ResolvedRuntime{Name: name, Version: version.System, System: true, Env: map[string]string{}}
				mu.Unlock()
				continue
			}

			eg.Go(func() error {
				installDir, err := r.installer.Install(egCtx, name, v, rt, name == r.forceTool)
				if err != nil {
					return err
				}
				layout, err := rt.InstallLayout(v, platform.Current())
				if err != nil {
					return err
				}
				exePath, err := installer.ExecutablePath(installDir, layout, name)
				if err != nil {
					return err
				}

				mu.Lock()
				graph.Nodes[name] = ResolvedRuntime{
					Name:           name,
					Version:        v.String(),
					InstallDir:     installDir,
					ExecutablePath: exePath,
					Env:            rt.ContributeEnv(v, installDir),
				}
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	if !r.noCache {
		_ = resolvercache.Save(r.cache, key, graph)
	}
	return graph, nil
}

// allInstalled re-validates that every node in a cached graph still has
// a completed install on disk (spec §8 "cache soundness").
func (r *Resolver) allInstalled(g *Graph) bool {
	for _, node := range g.Nodes {
		if node.System {
			continue
		}
		if !installer.HasValidSentinel(node.InstallDir) {
			return false
		}
	}
	return true
}

// ManifestDigest hashes the bytes of a project manifest for use as a
// resolution-cache key component; empty when no manifest file exists.
func ManifestDigest(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return resolvercache.Digest(data)
}

// Package registry indexes Runtime implementations by name and alias and
// loads declarative provider manifests from disk, mirroring the caching
// and path-safety discipline of an aqua-style registry fetcher.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/runtime"
)

// entry pairs a registered runtime with the priority it was registered at,
// used to break alias collisions deterministically.
type entry struct {
	rt       runtime.Runtime
	priority runtime.Priority
}

// Registry is a name→Runtime index. A runtime name (case-insensitive)
// resolves to at most one runtime; registering a second runtime under an
// already-claimed name or alias is only accepted if its priority is
// strictly higher than the incumbent's.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*entry
	runtime map[string]runtime.Runtime // canonical name -> runtime, for enumeration
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byName:  make(map[string]*entry),
		runtime: make(map[string]runtime.Runtime),
	}
}

// requiredCapabilities are the minimal functions a Runtime must implement
// to be accepted: it always implements its own interface in Go, so this
// validates the declared Capabilities() bits instead of a method set.
func requiredCapabilities(c runtime.Capabilities) error {
	missing := []string{}
	if !c.EnumerateVersions {
		missing = append(missing, "enumerate-versions")
	}
	if !c.ResolveConstraint {
		missing = append(missing, "resolve-constraint")
	}
	if !c.BuildDownloadURL {
		missing = append(missing, "build-download-url")
	}
	if !c.DescribeLayout {
		missing = append(missing, "describe-layout")
	}
	if len(missing) > 0 {
		return fmt.Errorf("runtime missing required capabilities: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Register adds rt to the registry under its canonical name and every
// alias, at runtime.PriorityDefault.
func (r *Registry) Register(rt runtime.Runtime) error {
	return r.RegisterWithPriority(rt, runtime.PriorityDefault)
}

// RegisterWithPriority adds rt to the registry at the given priority,
// used to resolve alias collisions (a higher-priority runtime wins).
func (r *Registry) RegisterWithPriority(rt runtime.Runtime, priority runtime.Priority) error {
	if err := requiredCapabilities(rt.Capabilities()); err != nil {
		return vxerrors.New(vxerrors.CategoryRegistry, fmt.Sprintf("cannot register %q: %v", rt.Name(), err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{rt.Name()}, rt.Aliases()...)
	for _, name := range names {
		key := strings.ToLower(name)
		if existing, ok := r.byName[key]; ok && existing.priority >= priority {
			return vxerrors.New(vxerrors.CategoryRegistry,
				fmt.Sprintf("name %q already claimed by runtime %q at priority %d", name, existing.rt.Name(), existing.priority))
		}
	}
	for _, name := range names {
		key := strings.ToLower(name)
		r.byName[key] = &entry{rt: rt, priority: priority}
	}
	r.runtime[strings.ToLower(rt.Name())] = rt
	return nil
}

// Lookup resolves a tool name (case-insensitive, canonical or alias) to
// its Runtime.
func (r *Registry) Lookup(name string) (runtime.Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, vxerrors.NewUnknownToolError(name)
	}
	return e.rt, nil
}

// Unregister removes a runtime and every alias it claimed. It is a no-op
// if name does not resolve to a registered runtime.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return
	}
	rt := e.rt
	names := append([]string{rt.Name()}, rt.Aliases()...)
	for _, n := range names {
		delete(r.byName, strings.ToLower(n))
	}
	delete(r.runtime, strings.ToLower(rt.Name()))
}

// Names returns every canonical runtime name registered, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.runtime))
	for name := range r.runtime {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many distinct runtimes are registered (not counting
// alias entries).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runtime)
}

// Fingerprint hashes the sorted set of registered canonical runtime
// names, used as one input to the resolution cache key (spec §9 Open
// Questions: "registry fingerprint is the safe default"). It changes
// whenever a runtime is added or removed, but not when one is merely
// looked up.
func (r *Registry) Fingerprint() string {
	names := r.Names()
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:])
}

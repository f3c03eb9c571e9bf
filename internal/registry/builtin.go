package registry

import (
	"fmt"

	"github.com/vxdev/vx/internal/registry/builtin"
	"github.com/vxdev/vx/internal/runtime"
)

// RegisterBuiltins registers vx's embedded catalog of provider manifests
// (node, go, python, rust) at runtime.PriorityLow, so a user-registered
// or user-manifest runtime with the same name always wins (spec.md §4.4
// "declared either in code or as data", supplemented per SPEC_FULL.md's
// declarative-provider-manifest feature).
func (r *Registry) RegisterBuiltins() error {
	for _, data := range mustEmbeddedManifests() {
		m, err := ParseManifestBytes(data)
		if err != nil {
			return fmt.Errorf("builtin manifest: %w", err)
		}
		if err := r.RegisterWithPriority(NewRuntime(m), runtime.PriorityLow); err != nil {
			return err
		}
	}
	return nil
}

func mustEmbeddedManifests() [][]byte {
	data, err := builtin.ReadAll()
	if err != nil {
		panic("builtin provider manifests failed to embed: " + err.Error())
	}
	return data
}

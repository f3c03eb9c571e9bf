package resolver

import (
	"sort"

	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/version"
)

// dagNode is one runtime name in the dependency graph under expansion,
// carrying the merged constraint every edge into it has imposed so far.
type dagNode struct {
	name       string
	constraint version.Constraint
	deps       []string // runtime names this node depends on
}

// buildDAG expands the dependency frontier starting at root (spec §4.7
// step 4): for each runtime in the frontier, append its declared
// dependencies with their constraints, merging duplicates by intersecting
// constraints. Returns nodes keyed by runtime name and the topological
// install order (leaves first).
func buildDAG(lookup func(name string) (runtime.Runtime, error), root string, rootConstraint version.Constraint) (map[string]*dagNode, []string, error) {
	nodes := map[string]*dagNode{
		root: {name: root, constraint: rootConstraint},
	}

	frontier := []string{root}
	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]

		rt, err := lookup(name)
		if err != nil {
			return nil, nil, err
		}
		node := nodes[name]

		for _, dep := range rt.Dependencies(version.Version{}) {
			depConstraint, err := version.ParseConstraint(dep.Constraint)
			if err != nil {
				return nil, nil, vxerrors.Wrap(vxerrors.CategoryValidation, "invalid dependency constraint", err)
			}

			node.deps = append(node.deps, dep.Name)

			existing, ok := nodes[dep.Name]
			if !ok {
				nodes[dep.Name] = &dagNode{name: dep.Name, constraint: depConstraint}
				frontier = append(frontier, dep.Name)
				continue
			}
			merged, ok := version.Intersect(existing.constraint, depConstraint)
			if !ok {
				return nil, nil, vxerrors.NewDependencyConflictError(dep.Name,
					[]string{existing.constraint.String(), depConstraint.String()})
			}
			existing.constraint = merged
		}
	}

	order, err := topoSort(nodes)
	if err != nil {
		return nil, nil, err
	}
	return nodes, order, nil
}

// topoSort orders nodes leaves-first via DFS with three-color marks,
// detecting cycles (spec §4.7 step 5).
func topoSort(nodes map[string]*dagNode) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var order []string
	var path []string

	// Deterministic traversal order so the same graph always produces
	// the same install order.
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			cycle := append(append([]string{}, path...), name)
			return vxerrors.NewCycleDetectedError(cycle)
		}
		color[name] = gray
		path = append(path, name)

		node := nodes[name]
		deps := append([]string{}, node.deps...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// installLevels groups a topological order into install waves: every
// node in a wave has all of its dependencies satisfied by an earlier
// wave, so nodes within one wave never depend on each other and are
// safe to install concurrently (spec §5 "bounded parallel installs
// across independent subtrees").
func installLevels(nodes map[string]*dagNode, order []string) [][]string {
	depth := make(map[string]int, len(nodes))
	for _, name := range order {
		d := 0
		for _, dep := range nodes[name].deps {
			if depDepth, ok := depth[dep]; ok && depDepth+1 > d {
				d = depDepth + 1
			}
		}
		depth[name] = d
	}

	var waves [][]string
	for _, name := range order {
		d := depth[name]
		for len(waves) <= d {
			waves = append(waves, nil)
		}
		waves[d] = append(waves[d], name)
	}
	return waves
}

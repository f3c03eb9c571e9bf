// Package builtin embeds the small catalog of declarative provider
// manifests vx ships out of the box, so a fresh install has node, go,
// python, and rust available without any user-supplied registry.
// Grounded on gnodet-mvx's pkg/tools/{node,go,python,rust}.go for the URL
// templates and archive layouts; expressed as data per
// internal/registry.Manifest instead of one Go type per tool.
package builtin

import (
	"embed"
	"sort"
	"strings"
)

//go:embed *.yaml
var files embed.FS

// Names returns the embedded manifest file names, sorted.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && (strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Read returns the raw bytes of an embedded manifest file.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// ReadAll returns the raw bytes of every embedded manifest, in sorted
// file-name order.
func ReadAll() ([][]byte, error) {
	var out [][]byte
	for _, name := range Names() {
		data, err := Read(name)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

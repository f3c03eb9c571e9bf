// Package config loads and merges project manifests (spec §4.9): the
// `[tools]`, `[scripts]`, `[env]`, and `[defaults]` tables of a vx.toml
// file, with optional `extends` chaining to a parent manifest on disk or
// in a git remote. Grounded on tomei's internal/config Loader shape
// (slog diagnostics), re-themed from a CUE-evaluated config onto a TOML
// one parsed by pelletier/go-toml/v2.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	vxerrors "github.com/vxdev/vx/internal/errors"
)

// FileName is the manifest file name searched for in a project directory.
const FileName = "vx.toml"

// Defaults holds the `[defaults]` table: policy knobs for installs that
// have no per-tool override.
type Defaults struct {
	AutoInstall    bool   `toml:"auto_install"`
	ChecksumPolicy string `toml:"checksum_policy"` // "required" | "warn" | "skip"
	RetryCount     int    `toml:"retry_count"`
}

// DefaultDefaults mirrors the installer's own defaults (spec §4.5/§5) so
// a manifest that omits `[defaults]` entirely still behaves sensibly.
func DefaultDefaults() Defaults {
	return Defaults{AutoInstall: true, ChecksumPolicy: "required", RetryCount: 3}
}

// Extends names a parent manifest this one inherits from: either a local
// path or a remote git reference. Exactly one of Path or Git is set.
type Extends struct {
	Path string
	Git  *GitRef
}

// GitRef is a remote manifest reference: `extends = { git = "...", rev =
// "...", integrity = "sha256:..." }`. A mandatory integrity hash is
// required whenever the root manifest's own defaults.checksum_policy is
// "required" (spec §4.9 "mandatory integrity hash when the root policy
// demands").
type GitRef struct {
	URL       string `toml:"git"`
	Rev       string `toml:"rev"`
	Path      string `toml:"path"` // path within the repo to the manifest file
	Integrity string `toml:"integrity"`
}

// rawManifest is the direct TOML unmarshal target. Unknown keys are
// tolerated by go-toml/v2's default decode behavior (spec §4.9 "Unknown
// fields must be tolerated").
type rawManifest struct {
	Extends  any               `toml:"extends"`
	Tools    map[string]string `toml:"tools"`
	Scripts  map[string]string `toml:"scripts"`
	Env      map[string]string `toml:"env"`
	Defaults Defaults          `toml:"defaults"`
}

// Manifest is the fully loaded and extends-merged project configuration.
type Manifest struct {
	Tools    map[string]string
	Scripts  map[string]string
	Env      map[string]string
	Defaults Defaults

	// Path is the manifest file this was loaded from, empty for a
	// synthesized empty manifest.
	Path string
}

// Load reads and parses the manifest at path, following its `extends`
// chain (nearest-wins merge: a child's tables override its parent's).
func Load(path string) (*Manifest, error) {
	return load(path, map[string]bool{})
}

func load(path string, seen map[string]bool) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, vxerrors.Wrap(vxerrors.CategoryConfig, "resolve manifest path", err)
	}
	if seen[abs] {
		return nil, vxerrors.New(vxerrors.CategoryConfig, "extends cycle detected at "+abs)
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, vxerrors.Wrap(vxerrors.CategoryConfig, "read "+abs, err)
	}

	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, vxerrors.NewConfigError("parse "+abs, err).WithFile(abs)
	}
	slog.Debug("loaded manifest", "path", abs)

	m := &Manifest{
		Tools:    raw.Tools,
		Scripts:  raw.Scripts,
		Env:      raw.Env,
		Defaults: raw.Defaults,
		Path:     abs,
	}
	if m.Defaults == (Defaults{}) {
		m.Defaults = DefaultDefaults()
	}

	ext, err := parseExtends(raw.Extends)
	if err != nil {
		return nil, err
	}
	if ext == nil {
		return m, nil
	}
	if ext.Git != nil && ext.Git.Integrity == "" && m.Defaults.ChecksumPolicy == "required" {
		return nil, vxerrors.New(vxerrors.CategoryConfig, "extends git reference in "+abs+" must set \"integrity\" when checksum_policy is \"required\"")
	}

	parent, err := loadExtends(*ext, filepath.Dir(abs), seen)
	if err != nil {
		return nil, err
	}
	merged := mergeOver(parent, m)
	if raw.Defaults == (Defaults{}) {
		merged.Defaults = parent.Defaults
	}
	return merged, nil
}

// loadExtends resolves an Extends reference to a Manifest: a local path
// is loaded relative to the child manifest's directory; a git reference
// is cloned into a scratch checkout first.
func loadExtends(ext Extends, relativeTo string, seen map[string]bool) (*Manifest, error) {
	if ext.Git != nil {
		path, err := fetchGitManifest(*ext.Git)
		if err != nil {
			return nil, err
		}
		return load(path, seen)
	}

	p := ext.Path
	if !filepath.IsAbs(p) {
		p = filepath.Join(relativeTo, p)
	}
	return load(p, seen)
}

// parseExtends normalizes the `extends` field, which TOML may decode as
// either a bare string (local path) or an inline table (git reference).
func parseExtends(raw any) (*Extends, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return &Extends{Path: v}, nil
	case map[string]any:
		ref := GitRef{}
		if s, ok := v["git"].(string); ok {
			ref.URL = s
		}
		if s, ok := v["rev"].(string); ok {
			ref.Rev = s
		}
		if s, ok := v["path"].(string); ok {
			ref.Path = s
		}
		if s, ok := v["integrity"].(string); ok {
			ref.Integrity = s
		}
		if ref.URL == "" {
			return nil, vxerrors.New(vxerrors.CategoryConfig, "extends table must set \"git\"")
		}
		return &Extends{Git: &ref}, nil
	default:
		return nil, vxerrors.New(vxerrors.CategoryConfig, fmt.Sprintf("extends must be a string or table, got %T", raw))
	}
}

// mergeOver layers child over parent: maps are merged key by key (child
// wins); Defaults is taken wholesale from the child. load restores the
// parent's Defaults when the child did not set a [defaults] table.
func mergeOver(parent, child *Manifest) *Manifest {
	merged := &Manifest{
		Tools:    mergeStrings(parent.Tools, child.Tools),
		Scripts:  mergeStrings(parent.Scripts, child.Scripts),
		Env:      mergeStrings(parent.Env, child.Env),
		Defaults: child.Defaults,
		Path:     child.Path,
	}
	return merged
}

func mergeStrings(parent, child map[string]string) map[string]string {
	out := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// Find walks upward from dir looking for a vx.toml, the way git finds
// .git: the nearest manifest wins. Returns "" if none is found by the
// time it reaches the filesystem root.
func Find(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

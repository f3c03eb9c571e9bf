// Package paths computes the deterministic on-disk layout vx uses for
// installed tools, dispatch shims, caches, and derived state. Apart from
// the directory creation helper, the sentinel existence check and the
// home-directory lookup, every function is a pure mapping from a
// configured root to a path.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EnvRoot is the environment variable that overrides the default root
// directory.
const EnvRoot = "VX_HOME"

const defaultRootSuffix = ".vx"

// Paths holds the configured root and derives every other location from
// it.
type Paths struct {
	root string
}

// Option configures a Paths during construction.
type Option func(*Paths)

// WithRoot overrides the root directory outright, bypassing VX_HOME and
// the default "~/.vx".
func WithRoot(root string) Option {
	return func(p *Paths) { p.root = root }
}

// New builds a Paths rooted at VX_HOME if set, else "~/.vx", unless
// overridden by WithRoot.
func New(opts ...Option) (*Paths, error) {
	p := &Paths{}
	if env := os.Getenv(EnvRoot); env != "" {
		p.root = env
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		p.root = filepath.Join(home, defaultRootSuffix)
	}

	expanded, err := Expand(p.root)
	if err != nil {
		return nil, err
	}
	p.root = expanded
	return p, nil
}

// Root returns the configured root directory.
func (p *Paths) Root() string { return p.root }

// Store returns the archive-install directory for a (tool, version) pair:
// root/store/<tool>/<version>.
func (p *Paths) Store(tool, version string) string {
	return filepath.Join(p.root, "store", tool, version)
}

// NpmTools returns the isolated environment directory for an npm-installed
// package: root/npm-tools/<pkg>/<version>/env.
func (p *Paths) NpmTools(pkg, version string) string {
	return filepath.Join(p.root, "npm-tools", pkg, version, "env")
}

// PipTools returns the isolated environment directory for a pip-installed
// package: root/pip-tools/<pkg>/<version>/env.
func (p *Paths) PipTools(pkg, version string) string {
	return filepath.Join(p.root, "pip-tools", pkg, version, "env")
}

// Bin returns the dispatch-shim directory: root/bin.
func (p *Paths) Bin() string { return filepath.Join(p.root, "bin") }

// CacheDownloads returns the directory downloaded artifacts are cached in.
func (p *Paths) CacheDownloads() string { return filepath.Join(p.root, "cache", "downloads") }

// CacheResolutions returns the directory the resolution cache lives in.
func (p *Paths) CacheResolutions() string { return filepath.Join(p.root, "cache", "resolutions") }

// Tmp returns the scratch directory for in-progress installs.
func (p *Paths) Tmp() string { return filepath.Join(p.root, "tmp") }

// Locks returns the directory install locks live in.
func (p *Paths) Locks() string { return filepath.Join(p.root, "tmp", "locks") }

// Config returns the directory holding derived global state.
func (p *Paths) Config() string { return filepath.Join(p.root, "config") }

// InstallLockFile returns the lock file path for a given (tool, version).
func (p *Paths) InstallLockFile(tool, version string) string {
	return filepath.Join(p.Locks(), tool+"-"+version+".lock")
}

// TmpInstallDir returns a fresh scratch directory name for an in-progress
// install; suffix should be a short random token so concurrent installs of
// the same (tool, version) in different processes never collide before the
// lock is held.
func (p *Paths) TmpInstallDir(tool, version, suffix string) string {
	return filepath.Join(p.Tmp(), "install-"+tool+"-"+version+"-"+suffix)
}

// Sentinel is the file name written inside a completed install directory.
const Sentinel = ".vx-installed.json"

// SentinelPath returns the sentinel file path inside an install directory.
func (p *Paths) SentinelPath(installDir string) string {
	return filepath.Join(installDir, Sentinel)
}

// HasSentinel reports whether installDir contains a readable sentinel
// file, i.e. whether the install is complete.
func (p *Paths) HasSentinel(installDir string) bool {
	_, err := os.Stat(p.SentinelPath(installDir))
	return err == nil
}

// Candidate is one location a tool's executable could legitimately live
// at, in search priority order.
type Candidate struct {
	// Kind names the source: "store", "npm-tools", "pip-tools", or "system".
	Kind string
	// Dir is the directory to look for the executable in ("" for "system",
	// meaning the parent process's PATH).
	Dir string
}

// Candidates returns every location a tool's binary could live at, in the
// order they should be searched: the archive store, then npm-tools,
// pip-tools, and finally the system PATH as a last resort.
func (p *Paths) Candidates(tool, version string) []Candidate {
	return []Candidate{
		{Kind: "store", Dir: p.Store(tool, version)},
		{Kind: "npm-tools", Dir: p.NpmTools(tool, version)},
		{Kind: "pip-tools", Dir: p.PipTools(tool, version)},
		{Kind: "system", Dir: ""},
	}
}

// ExeSuffix returns the platform's executable file suffix.
func ExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// EnsureDir creates a directory (and parents) if it doesn't already exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Expand resolves a leading "~" to the user's home directory; any other
// path is returned unchanged.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

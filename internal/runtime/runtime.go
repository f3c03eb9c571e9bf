// Package runtime defines the polymorphic contract every installable tool
// implements: enumerate versions, resolve a constraint, describe a
// download artifact and its on-disk layout, and declare dependencies and
// environment contributions. It is expressed as a capability set rather
// than a class hierarchy, mirroring the declarative resource style the
// rest of the installer stack uses.
package runtime

import (
	"context"

	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/version"
)

// ChecksumRef points at a checksum for a download artifact: either a
// literal "algorithm:hash" value, or a URL to a checksums file plus the
// filename pattern to look up within it.
type ChecksumRef struct {
	Value       string
	URL         string
	FilePattern string
}

// Empty reports whether no checksum information was supplied at all,
// which the installer treats as "skip verification".
func (c ChecksumRef) Empty() bool {
	return c.Value == "" && c.URL == ""
}

// SignatureRef points at an optional cosign/sigstore bundle covering a
// download artifact, layered on top of checksum verification.
type SignatureRef struct {
	// BundleURL is the sigstore bundle (or detached signature) location.
	BundleURL string
	// Identity is the expected Fulcio certificate identity (e.g. a GitHub
	// Actions workflow reference).
	Identity string
	// OIDCIssuer is the expected Fulcio certificate issuer.
	OIDCIssuer string
}

// DownloadSpec is a pure description of one artifact to fetch: where from
// (with optional CDN mirrors tried before the origin URL), how to verify
// it, and what archive format it is packaged as.
type DownloadSpec struct {
	// URL is the origin download URL.
	URL string
	// Mirrors are CDN or mirror URLs attempted, in order, before URL.
	Mirrors []string
	// Filename is the suggested local filename, used to match entries in
	// a checksums file.
	Filename string
	// Archive names the archive format, normalized by the extract package
	// (tar.gz, tar.xz, tar.bz2, zip, raw).
	Archive string
	// Checksum describes how to verify the downloaded artifact.
	Checksum ChecksumRef
	// Signature optionally layers signature verification on top of the
	// checksum.
	Signature *SignatureRef
}

// ExecutablePath names one binary the install produces, relative to the
// install directory, and the logical name it should be dispatched under
// (usually the same as the file name, but npm/pip shims may differ).
type ExecutablePath struct {
	Name string
	Path string
}

// InstallLayout describes how to turn an extracted archive into a usable
// install directory.
type InstallLayout struct {
	// StripPrefix is a leading path component to strip from every archive
	// member during extraction (common for GitHub release tarballs that
	// wrap everything in a single top-level directory).
	StripPrefix string
	// Executables lists every binary the install must expose, each
	// checked for existence and given exec bits on Unix after extraction.
	Executables []ExecutablePath
	// RequireSignature, when true, fails the install if no valid
	// signature could be verified, instead of only logging a warning.
	RequireSignature bool
}

// Spec names a dependency on another runtime with the version constraint
// that must be satisfied.
type Spec struct {
	Name       string
	Constraint string
}

// Capabilities enumerates the functions a Runtime implementation
// supports. The registry validates that every runtime provides at least
// the minimal required set before accepting it.
type Capabilities struct {
	EnumerateVersions bool
	ResolveConstraint bool
	BuildDownloadURL  bool
	DescribeLayout    bool
	DeclareDeps       bool
	ContributeEnv     bool
}

// Runtime is the contract a provider implements for one installable tool.
// Implementations should be safe for concurrent use; the resolver may
// call FetchVersions concurrently for independent subtrees of the
// dependency graph.
type Runtime interface {
	// Name returns the runtime's canonical, case-insensitive-unique name.
	Name() string

	// Aliases returns additional names this runtime should also answer
	// to in the registry (e.g. "nodejs" aliasing to "node").
	Aliases() []string

	// SupportsPlatform reports whether this runtime publishes a build for p.
	SupportsPlatform(p platform.Platform) bool

	// Capabilities reports which optional functions are implemented.
	Capabilities() Capabilities

	// FetchVersions returns every version this runtime's upstream
	// publishes. May be expensive; the resolver caches the result with a
	// short TTL for the lifetime of one resolution.
	FetchVersions(ctx context.Context) ([]version.Info, error)

	// ResolveConstraint selects the concrete version satisfying c from
	// the versions FetchVersions reports.
	ResolveConstraint(ctx context.Context, c version.Constraint) (version.Version, error)

	// DownloadSpec computes the artifact to fetch for v on p. Must be a
	// pure function of its inputs.
	DownloadSpec(v version.Version, p platform.Platform) (DownloadSpec, error)

	// InstallLayout computes the on-disk layout for v on p. Must be a
	// pure function of its inputs.
	InstallLayout(v version.Version, p platform.Platform) (InstallLayout, error)

	// Dependencies declares the other runtimes that must be installed
	// and present in the environment alongside v.
	Dependencies(v version.Version) []Spec

	// ContributeEnv returns the environment variables this runtime's
	// install at installDir contributes to a child process (e.g.
	// prepending installDir/bin to PATH, setting GOROOT, etc.).
	ContributeEnv(v version.Version, installDir string) map[string]string
}

// Priority is a registry-assigned tiebreaker used when two runtimes claim
// the same alias; the higher priority wins.
type Priority int

const (
	PriorityDefault Priority = 0
	PriorityLow     Priority = -10
	PriorityHigh    Priority = 10
)

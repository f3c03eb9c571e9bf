// Package version parses tool versions and constraints and selects the
// best matching version from a candidate list. Parsing builds on
// Masterminds/semver for ordering and comparison; the package layers the
// "system" sentinel and LTS-aware selection rules on top.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// System is the sentinel string meaning "whatever is already on the host,
// not managed by vx".
const System = "system"

// Version is an ordered, parsed release. The original string is retained
// for display even though comparisons are performed against the
// normalized semver value.
type Version struct {
	raw        string
	semver     *semver.Version
	isSystem   bool
	isLTS      bool
	prerelease bool
}

// Info describes one version reported by a runtime's version source.
type Info struct {
	Version    string
	LTS        bool
	Prerelease bool
}

// Parse parses a version string, tolerating a leading "v" and build
// metadata, per the permissive rules runtimes publish their tags under.
// The special string "system" parses to the system sentinel version.
func Parse(s string) (Version, error) {
	if s == System {
		return Version{raw: s, isSystem: true}, nil
	}
	sv, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, err
	}
	return Version{
		raw:        s,
		semver:     sv,
		prerelease: sv.Prerelease() != "",
	}, nil
}

// MustParse parses s, panicking on error. Intended for constructing
// version lists that are known to be well-formed, such as those embedded
// in provider manifests or test fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromInfo parses an Info record into a Version, carrying over its LTS flag.
func FromInfo(info Info) (Version, error) {
	v, err := Parse(info.Version)
	if err != nil {
		return Version{}, err
	}
	v.isLTS = info.LTS
	v.prerelease = v.prerelease || info.Prerelease
	return v, nil
}

// String returns the original, as-published version string.
func (v Version) String() string { return v.raw }

// IsSystem reports whether v is the "system" sentinel.
func (v Version) IsSystem() bool { return v.isSystem }

// IsPrerelease reports whether v is a prerelease version.
func (v Version) IsPrerelease() bool { return v.prerelease }

// IsLTS reports whether v was flagged as a long-term-support release by
// its runtime's version source.
func (v Version) IsLTS() bool { return v.isLTS }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other. The system sentinel compares greater than every release and
// equal to itself; Select gives it no special treatment when it appears
// among the candidates.
func (v Version) Compare(other Version) int {
	if v.isSystem || other.isSystem {
		switch {
		case v.isSystem && other.isSystem:
			return 0
		case v.isSystem:
			return 1
		default:
			return -1
		}
	}
	return v.semver.Compare(other.semver)
}

// LessThan reports whether v orders before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

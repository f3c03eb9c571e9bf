package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	vxerrors "github.com/vxdev/vx/internal/errors"
)

// Kind classifies a parsed Constraint.
type Kind int

const (
	// KindExact matches exactly one version (e.g. "1.2.3").
	KindExact Kind = iota
	// KindRange matches via a semver range expression (e.g. "^1.2.3", "~1.2.3", ">=1.2, <2").
	KindRange
	// KindLatest selects the greatest non-prerelease version.
	KindLatest
	// KindLTS selects the greatest version flagged LTS.
	KindLTS
	// KindSystem selects the system sentinel, bypassing installation.
	KindSystem
)

// Constraint is a parsed version predicate: exact, caret, tilde, range,
// "latest", "lts", or "system".
type Constraint struct {
	raw   string
	kind  Kind
	exact Version
	rng   *semver.Constraints
}

// ParseConstraint parses a constraint string as written in vx.toml or on
// the command line (`tool@constraint`).
func ParseConstraint(s string) (Constraint, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "latest":
		return Constraint{raw: trimmed, kind: KindLatest}, nil
	case "lts":
		return Constraint{raw: trimmed, kind: KindLTS}, nil
	case System:
		return Constraint{raw: trimmed, kind: KindSystem}, nil
	}

	// An exact version has no operators and parses cleanly as a semver.
	if sv, err := semver.NewVersion(trimmed); err == nil && isBareVersion(trimmed) {
		return Constraint{raw: trimmed, kind: KindExact, exact: Version{raw: trimmed, semver: sv}}, nil
	}

	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return Constraint{}, vxerrors.Wrap(vxerrors.CategoryValidation, "invalid version constraint "+s, err)
	}
	return Constraint{raw: trimmed, kind: KindRange, rng: c}, nil
}

// isBareVersion reports whether s has no range/caret/tilde operator
// prefix, i.e. it names one version exactly.
func isBareVersion(s string) bool {
	for _, op := range []string{"^", "~", ">", "<", "=", ","} {
		if strings.Contains(s, op) {
			return false
		}
	}
	return true
}

// String returns the original constraint text.
func (c Constraint) String() string { return c.raw }

// Kind reports the constraint's classification.
func (c Constraint) Kind() Kind { return c.kind }

// Intersect merges two constraints by requiring both to be satisfied.
// Two different exact constraints, or two ranges with no shared satisfying
// version, intersect to an error. KindLatest/KindLTS/KindSystem only
// intersect cleanly with themselves or an identical-kind constraint.
func Intersect(a, b Constraint) (Constraint, bool) {
	if a.raw == b.raw {
		return a, true
	}
	if a.kind == KindExact && b.kind == KindExact {
		return Constraint{}, false
	}
	if a.kind == KindExact && b.Matches(Info{Version: a.exact.raw}) {
		return a, true
	}
	if b.kind == KindExact && a.Matches(Info{Version: b.exact.raw}) {
		return b, true
	}
	if a.kind == KindRange && b.kind == KindRange {
		merged := "(" + a.raw + ") && (" + b.raw + ")"
		if c, err := semver.NewConstraint(merged); err == nil {
			return Constraint{raw: merged, kind: KindRange, rng: c}, true
		}
		return Constraint{}, false
	}
	if a.kind == b.kind {
		return a, true
	}
	return Constraint{}, false
}

// Matches reports whether the given candidate Info satisfies an
// exact or range constraint. It always returns false for the
// latest/lts/system kinds, which select rather than filter; use Select
// for those.
func (c Constraint) Matches(info Info) bool {
	v, err := Parse(info.Version)
	if err != nil {
		return false
	}
	switch c.kind {
	case KindExact:
		return v.semver != nil && c.exact.semver != nil && v.semver.Equal(c.exact.semver)
	case KindRange:
		return v.semver != nil && c.rng.Check(v.semver)
	default:
		return false
	}
}

// Select applies the matching rules against a candidate list (order is
// irrelevant; it is sorted internally) and returns the chosen version.
// Returns vxerrors.NoSatisfyingVersion when nothing matches.
func (c Constraint) Select(tool string, candidates []Info) (Version, error) {
	versions := make([]Version, 0, len(candidates))
	for _, info := range candidates {
		v, err := FromInfo(info)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].LessThan(versions[j]) })

	switch c.kind {
	case KindSystem:
		return Version{raw: System, isSystem: true}, nil

	case KindExact:
		for _, v := range versions {
			if v.semver != nil && c.exact.semver != nil && v.semver.Equal(c.exact.semver) {
				return v, nil
			}
		}

	case KindRange:
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i].semver != nil && c.rng.Check(versions[i].semver) {
				return versions[i], nil
			}
		}

	case KindLatest:
		var bestPrerelease *Version
		for i := len(versions) - 1; i >= 0; i-- {
			if !versions[i].IsPrerelease() {
				return versions[i], nil
			}
			if bestPrerelease == nil {
				v := versions[i]
				bestPrerelease = &v
			}
		}
		if bestPrerelease != nil {
			return *bestPrerelease, nil
		}

	case KindLTS:
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i].IsLTS() {
				return versions[i], nil
			}
		}
	}

	available := make([]string, len(versions))
	for i, v := range versions {
		available[i] = v.String()
	}
	return Version{}, vxerrors.NewNoSatisfyingVersionError(tool, c.raw, available)
}

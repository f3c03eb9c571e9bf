//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// DependencyError represents a dependency resolution error (spec §4.4
// "Version Resolution").
type DependencyError struct {
	Base Error `json:"error"`

	// Resource is the resource that has the dependency issue.
	Resource string `json:"resource,omitempty"`

	// Constraints lists the conflicting constraints found for Resource.
	Constraints []string `json:"constraints,omitempty"`

	// Cycle lists the nodes in a circular dependency.
	// The first and last elements are the same, showing the cycle point.
	Cycle []string `json:"cycle,omitempty"`
}

// NewCycleDetectedError creates a DependencyError for circular dependencies
// found while building the install DAG (spec §4.4 edge case "cyclic
// dependency").
func NewCycleDetectedError(cycle []string) *DependencyError {
	return &DependencyError{
		Base: Error{
			Category: CategoryDependency,
			Code:     CodeCyclicDependency,
			Message:  "circular dependency detected",
			Hint:     "Remove one of the dependencies to break the cycle.",
		},
		Cycle: cycle,
	}
}

// NewDependencyConflictError creates a DependencyError for two manifests
// declaring incompatible version constraints on the same resource (spec
// §4.4 edge case "conflicting constraints").
func NewDependencyConflictError(resource string, constraints []string) *DependencyError {
	return &DependencyError{
		Base: Error{
			Category: CategoryDependency,
			Code:     CodeDependencyConflict,
			Message:  fmt.Sprintf("conflicting version constraints on %s", resource),
			Hint:     "Align the constraints across manifests, or pin one explicitly.",
		},
		Resource:    resource,
		Constraints: constraints,
	}
}

// IsCycle returns true if this is a circular dependency error.
func (e *DependencyError) IsCycle() bool {
	return len(e.Cycle) > 0
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *DependencyError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *DependencyError) Is(target error) bool {
	t, ok := target.(*DependencyError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// InstallError represents an installation-related error.
type InstallError struct {
	Base Error `json:"error"`

	// Resource is the resource being installed.
	Resource string `json:"resource,omitempty"`

	// Version is the version being installed.
	Version string `json:"version,omitempty"`

	// URL is the download URL (if applicable).
	URL string `json:"url,omitempty"`

	// Action is the operation being performed (install, upgrade, remove).
	Action string `json:"action,omitempty"`
}

// NewInstallError creates an InstallError.
func NewInstallError(resource, action string, cause error) *InstallError {
	return &InstallError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeInstallFailed,
			Message:  fmt.Sprintf("%s failed", action),
			Cause:    cause,
		},
		Resource: resource,
		Action:   action,
	}
}

// WithVersion sets the version.
func (e *InstallError) WithVersion(version string) *InstallError {
	e.Version = version
	return e
}

// WithURL sets the URL.
func (e *InstallError) WithURL(url string) *InstallError {
	e.URL = url
	return e
}

// ChecksumError represents a checksum verification failure.
type ChecksumError struct {
	Base Error `json:"error"`

	// Resource is the resource being verified.
	Resource string `json:"resource,omitempty"`

	// URL is the download URL.
	URL string `json:"url,omitempty"`

	// Expected is the expected checksum.
	Expected string `json:"expected,omitempty"`

	// Got is the actual checksum.
	Got string `json:"got,omitempty"`
}

// NewChecksumError creates a ChecksumError.
func NewChecksumError(resource, url, expected, got string) *ChecksumError {
	return &ChecksumError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeChecksumMismatch,
			Message:  "checksum verification failed",
			Hint:     "The file may have been corrupted during download.\nRun 'vx install --force' to re-download, or\nupdate the checksum in your provider manifest.",
		},
		Resource: resource,
		URL:      url,
		Expected: expected,
		Got:      got,
	}
}

// LockBusyError represents an install lock another vx process is holding
// (spec §4.5 step 1, §7 "Lock contention").
type LockBusyError struct {
	Base Error `json:"error"`

	// Tool and Version identify the (tool, version) pair the lock guards.
	Tool    string `json:"tool,omitempty"`
	Version string `json:"version,omitempty"`

	// HeldByPID is the PID stamped in the lock file by the process
	// holding it (0 if unknown).
	HeldByPID int `json:"heldByPid,omitempty"`
}

// NewInstallLockBusyError creates a LockBusyError for a (tool, version)
// install lock held by another process.
func NewInstallLockBusyError(tool, version string, heldByPID int) *LockBusyError {
	return &LockBusyError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeInstallLockBusy,
			Message:  fmt.Sprintf("install lock for %s@%s is held by another process", tool, version),
			Hint:     "Wait for the other process to finish, or remove the stale lock file if it crashed.",
		},
		Tool:      tool,
		Version:   version,
		HeldByPID: heldByPID,
	}
}

// Error implements the error interface for LockBusyError.
func (e *LockBusyError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for LockBusyError.
func (e *LockBusyError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *LockBusyError) Is(target error) bool {
	t, ok := target.(*LockBusyError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

// Error implements the error interface for InstallError.
func (e *InstallError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for InstallError.
func (e *InstallError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *InstallError) Is(target error) bool {
	t, ok := target.(*InstallError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

// Error implements the error interface for ChecksumError.
func (e *ChecksumError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for ChecksumError.
func (e *ChecksumError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *ChecksumError) Is(target error) bool {
	t, ok := target.(*ChecksumError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

// Package platform detects and normalizes the host operating system, CPU
// architecture, and C library so that provider manifests can express
// download artifacts with a small, stable vocabulary of aliases instead of
// every vendor's naming convention.
package platform

import (
	"os"
	"runtime"
	"sync"
)

// Libc identifies the C library flavor on Linux hosts. It is irrelevant on
// other operating systems and always reported as LibcNone there.
type Libc string

const (
	LibcNone  Libc = ""
	LibcGlibc Libc = "glibc"
	LibcMusl  Libc = "musl"
)

// Platform is the normalized (OS, Arch, Libc) triple for the running host.
type Platform struct {
	OS   string
	Arch string
	Libc Libc
}

// String renders the platform as "os-arch", the form most provider
// manifests key their download tables on.
func (p Platform) String() string {
	return p.OS + "-" + p.Arch
}

var (
	current     Platform
	currentOnce sync.Once
)

// Current returns the detected platform for the running process, memoized
// after the first call.
func Current() Platform {
	currentOnce.Do(func() {
		current = Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
			Libc: detectLibc(),
		}
	})
	return current
}

// detectLibc reports the C library in use on Linux by checking for the
// musl dynamic loader; every other case (including non-Linux hosts)
// defaults to glibc or LibcNone respectively.
func detectLibc() Libc {
	if runtime.GOOS != "linux" {
		return LibcNone
	}
	for _, candidate := range []string{
		"/lib/ld-musl-x86_64.so.1",
		"/lib/ld-musl-aarch64.so.1",
		"/lib/ld-musl-armhf.so.1",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return LibcMusl
		}
	}
	return LibcGlibc
}

// IsWindows reports whether p is a Windows platform.
func (p Platform) IsWindows() bool { return p.OS == "windows" }

// IsMacOS reports whether p is a macOS/Darwin platform.
func (p Platform) IsMacOS() bool { return p.OS == "darwin" }

// IsLinux reports whether p is a Linux platform.
func (p Platform) IsLinux() bool { return p.OS == "linux" }

// ExeSuffix returns the platform's executable file suffix, ".exe" on
// Windows and empty everywhere else.
func (p Platform) ExeSuffix() string {
	if p.IsWindows() {
		return ".exe"
	}
	return ""
}

// MapOS translates the normalized OS name through a vendor-supplied alias
// table (e.g. {"darwin": "macos", "linux": "linux"}), falling back to the
// normalized name when no alias is registered.
func MapOS(os string, aliases map[string]string) string {
	if mapped, ok := aliases[os]; ok {
		return mapped
	}
	return os
}

// MapArch translates the normalized architecture name through a
// vendor-supplied alias table (e.g. {"amd64": "x86_64", "arm64": "aarch64"}),
// falling back to the normalized name when no alias is registered.
func MapArch(arch string, aliases map[string]string) string {
	if mapped, ok := aliases[arch]; ok {
		return mapped
	}
	return arch
}

// Matches reports whether p satisfies a manifest-declared constraint. An
// empty field in want matches anything; LibcNone in want matches any libc,
// which lets non-Linux-aware manifests omit the field entirely.
func (p Platform) Matches(want Platform) bool {
	if want.OS != "" && want.OS != p.OS {
		return false
	}
	if want.Arch != "" && want.Arch != p.Arch {
		return false
	}
	if want.Libc != "" && want.Libc != p.Libc {
		return false
	}
	return true
}

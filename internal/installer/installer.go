// Package installer implements the install algorithm of spec §4.5: given
// a runtime's DownloadSpec and InstallLayout, it acquires the
// per-(tool,version) lock, downloads and verifies the artifact, extracts
// or copies it into a tmp workspace, applies the declared layout, writes
// the sentinel, and atomically renames the result into the store.
// Grounded on tomei's installer/engine+download+extract+checksum
// pipeline, restructured around one (tool, version) install instead of a
// whole-resource-graph Apply.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vxdev/vx/internal/download"
	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/installer/extract"
	"github.com/vxdev/vx/internal/lock"
	"github.com/vxdev/vx/internal/paths"
	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/reporter"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/verify"
	"github.com/vxdev/vx/internal/version"
)

// LockWaitTimeout bounds how long Install waits for another process's
// install lock before failing with InstallLockBusy (spec §5 Timeouts).
const LockWaitTimeout = 60 * time.Second

// Installer drives the per-(tool, version) install algorithm.
type Installer struct {
	paths      *paths.Paths
	downloader *download.Downloader
	reporter   reporter.Reporter
	verifier   verify.Verifier
}

// New builds an Installer rooted at p, downloading through d and
// reporting through rep (reporter.Noop{} if rep is nil). Signature
// verification is disabled by default; call SetVerifier to enable it.
func New(p *paths.Paths, d *download.Downloader, rep reporter.Reporter) *Installer {
	if rep == nil {
		rep = reporter.Noop{}
	}
	return &Installer{
		paths:      p,
		downloader: d,
		reporter:   rep,
		verifier:   verify.NewNoopVerifier("no signature verifier configured"),
	}
}

// SetVerifier swaps in a signature Verifier, checked against any
// DownloadSpec that declares a SignatureRef, after checksum verification
// and before extraction (spec SPEC_FULL.md "Signature verification").
func (in *Installer) SetVerifier(v verify.Verifier) { in.verifier = v }

// Install ensures tool@v is present in the store, installing it if
// necessary. force re-installs even if a sentinel is already present
// (spec §9 Open Questions: "--force" means remove-and-reinstall).
func (in *Installer) Install(ctx context.Context, tool string, v version.Version, rt runtime.Runtime, force bool) (string, error) {
	if !rt.SupportsPlatform(platform.Current()) {
		return "", vxerrors.NewUnsupportedPlatformError(tool, platform.Current().OS, platform.Current().Arch)
	}

	installDir := in.paths.Store(tool, v.String())

	if force {
		os.RemoveAll(installDir)
	} else if HasValidSentinel(installDir) {
		in.reporter.Report(reporter.Event{Kind: reporter.KindInstallSkipped, Tool: tool, Version: v.String()})
		return installDir, nil
	}

	lockPath := in.paths.InstallLockFile(tool, v.String())
	if err := paths.EnsureDir(filepath.Dir(lockPath)); err != nil {
		return "", vxerrors.Wrap(vxerrors.CategoryInstall, "create lock directory", err)
	}

	in.reporter.Report(reporter.Event{Kind: reporter.KindLockWait, Tool: tool, Version: v.String(), Message: "waiting for install lock"})
	l, err := lock.Acquire(ctx, lockPath, tool, v.String(), LockWaitTimeout)
	if err != nil {
		return "", err
	}
	defer l.Release()
	in.reporter.Report(reporter.Event{Kind: reporter.KindLockAcquired, Tool: tool, Version: v.String()})

	// Re-check now that we hold the lock: another process may have just
	// finished installing the same (tool, version) while we waited.
	if !force && HasValidSentinel(installDir) {
		in.reporter.Report(reporter.Event{Kind: reporter.KindInstallSkipped, Tool: tool, Version: v.String()})
		return installDir, nil
	}

	in.reporter.Report(reporter.Event{Kind: reporter.KindInstallStart, Tool: tool, Version: v.String()})
	if err := in.doInstall(ctx, tool, v, rt, installDir); err != nil {
		in.reporter.Report(reporter.Event{Kind: reporter.KindError, Tool: tool, Version: v.String(), Err: err})
		return "", err
	}
	in.reporter.Report(reporter.Event{Kind: reporter.KindInstallComplete, Tool: tool, Version: v.String()})
	return installDir, nil
}

func (in *Installer) doInstall(ctx context.Context, tool string, v version.Version, rt runtime.Runtime, installDir string) error {
	if err := paths.EnsureDir(in.paths.Tmp()); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "create tmp directory", err)
	}
	tmpDir := in.paths.TmpInstallDir(tool, v.String(), uuid.NewString())
	if err := paths.EnsureDir(tmpDir); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "create tmp install directory", err)
	}
	// A failed install removes tmpDir before returning; a tmpDir left
	// behind by a process that died mid-install is collected by the next
	// startup Sweep. On success tmpDir has already been renamed away.
	succeeded := false
	defer func() {
		if !succeeded {
			os.RemoveAll(tmpDir)
		}
	}()

	spec, err := rt.DownloadSpec(v, platform.Current())
	if err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "compute download spec", err)
	}
	layout, err := rt.InstallLayout(v, platform.Current())
	if err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "compute install layout", err)
	}

	if err := paths.EnsureDir(in.paths.CacheDownloads()); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "create download cache", err)
	}
	archivePath := filepath.Join(in.paths.CacheDownloads(), fmt.Sprintf("%s-%s-%s", tool, v.String(), filepath.Base(spec.Filename)))

	result, err := in.downloader.Fetch(ctx, spec, archivePath, tool, v.String(), in.reporter)
	if err != nil {
		return err
	}
	defer os.Remove(archivePath)

	if spec.Signature != nil {
		sigResult, err := in.verifier.Verify(ctx, verify.Target{ArtifactPath: archivePath, Ref: *spec.Signature})
		if err != nil {
			if layout.RequireSignature {
				return vxerrors.Wrap(vxerrors.CategoryInstall, "verify signature for "+tool, err)
			}
			in.reporter.Report(reporter.Event{Kind: reporter.KindWarning, Tool: tool, Version: v.String(), Message: "signature verification failed: " + err.Error()})
		} else if sigResult.Skipped && layout.RequireSignature {
			return vxerrors.New(vxerrors.CategoryInstall, "signature required for "+tool+" but "+sigResult.SkipReason)
		}
	}

	if err := extractArtifact(archivePath, tmpDir, spec, layout); err != nil {
		return err
	}

	if err := applyLayout(tmpDir, layout); err != nil {
		return err
	}

	algo, _, _ := splitChecksum(result.Checksum)
	if err := WriteSentinel(tmpDir, Sentinel{
		Version:           v.String(),
		SourceURL:         result.SourceURL,
		Checksum:          result.Checksum,
		ChecksumAlgorithm: algo,
		InstalledAt:       time.Now().UTC(),
	}); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "write sentinel", err)
	}

	if err := paths.EnsureDir(filepath.Dir(installDir)); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "create store directory", err)
	}
	if err := renameOrCopy(tmpDir, installDir); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "finalize install directory", err)
	}
	succeeded = true
	return nil
}

func splitChecksum(value string) (algo, hash string, ok bool) {
	for i := 0; i < len(value); i++ {
		if value[i] == ':' {
			return value[:i], value[i+1:], true
		}
	}
	return "", value, false
}

// extractArtifact dispatches on the declared archive kind: an archive is
// extracted in full; a raw binary is copied to the sole declared
// executable path (spec §4.5 step 6).
func extractArtifact(archivePath, destDir string, spec runtime.DownloadSpec, layout runtime.InstallLayout) error {
	archiveType := extract.NormalizeArchiveType(spec.Archive)
	if archiveType == "" {
		archiveType = extract.DetectArchiveType(spec.Filename)
	}

	if archiveType == extract.ArchiveTypeRaw {
		if len(layout.Executables) != 1 {
			return vxerrors.New(vxerrors.CategoryInstall, "raw binary install must declare exactly one executable")
		}
		return copyRawBinary(archivePath, filepath.Join(destDir, layout.Executables[0].Path))
	}

	extractor, err := extract.NewExtractor(archiveType)
	if err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "unsupported archive format", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "open downloaded archive", err)
	}
	defer f.Close()

	if err := extractor.Extract(f, destDir); err != nil {
		return vxerrors.Wrap(vxerrors.CategoryInstall, "extract archive", err)
	}
	return nil
}

func copyRawBinary(src, dst string) error {
	if err := paths.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// renameOrCopy implements spec §4.5 step 10: an atomic rename on the
// common case, falling back to copy-then-delete when tmp and the store
// live on different devices (cross-device rename is not atomic on any
// platform, so a Sweep of orphaned tmp dirs is the crash-recovery net).
func renameOrCopy(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}

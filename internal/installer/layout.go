package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	vxerrors "github.com/vxdev/vx/internal/errors"
	vxruntime "github.com/vxdev/vx/internal/runtime"
)

// applyLayout turns an extracted directory into a finished install
// directory per spec §4.5 step 7: strip a wrapping top-level directory,
// then validate and chmod +x every declared executable.
func applyLayout(extractedDir string, layout vxruntime.InstallLayout) error {
	root := extractedDir
	if layout.StripPrefix != "" {
		prefixed := filepath.Join(extractedDir, layout.StripPrefix)
		if info, err := os.Stat(prefixed); err != nil || !info.IsDir() {
			return vxerrors.New(vxerrors.CategoryInstall,
				fmt.Sprintf("archive is missing declared strip-prefix %q", layout.StripPrefix))
		}
		if err := stripInto(extractedDir, prefixed); err != nil {
			return err
		}
		root = extractedDir
	}

	for _, exe := range layout.Executables {
		full := filepath.Join(root, exe.Path)
		info, err := os.Stat(full)
		if err != nil {
			return vxerrors.Wrap(vxerrors.CategoryInstall,
				fmt.Sprintf("declared executable %q not found after extraction", exe.Path), err)
		}
		if info.IsDir() {
			return vxerrors.New(vxerrors.CategoryInstall, fmt.Sprintf("declared executable %q is a directory", exe.Path))
		}
		if runtime.GOOS != "windows" {
			if err := os.Chmod(full, info.Mode()|0o111); err != nil {
				return vxerrors.Wrap(vxerrors.CategoryInstall, fmt.Sprintf("set executable bit on %q", exe.Path), err)
			}
		}
	}
	return nil
}

// stripInto moves every entry of prefixed up into root and removes the
// now-empty wrapper directory, implementing the "strip a single
// top-level directory" extraction convention GitHub release tarballs use.
func stripInto(root, prefixed string) error {
	entries, err := os.ReadDir(prefixed)
	if err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(prefixed, e.Name())
		dst := filepath.Join(root, e.Name())
		if dst == src {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	if prefixed != root {
		return os.RemoveAll(prefixed)
	}
	return nil
}

// ExecutablePath resolves the on-disk path of the named executable
// inside a completed install directory, applying the platform suffix the
// layout declared it under. name is matched against each declared
// executable's name and that name's base name first. When nothing
// matches (e.g. an alias such as "nodejs" for an executable named
// "node"), the first declared executable is the layout's primary binary (spec
// §4.3/§4.8 "executable_in … the resolved path of the primary binary")
// and is returned instead of failing, since a runtime's canonical name
// need not equal any of its binaries' names (e.g. "rust" → "rustup-init").
func ExecutablePath(installDir string, layout vxruntime.InstallLayout, name string) (string, error) {
	for _, exe := range layout.Executables {
		if exe.Name == name || filepath.Base(exe.Name) == name {
			return filepath.Join(installDir, exe.Path), nil
		}
	}
	if len(layout.Executables) > 0 {
		return filepath.Join(installDir, layout.Executables[0].Path), nil
	}
	return "", vxerrors.New(vxerrors.CategoryInstall, fmt.Sprintf("no executable declared in install layout for %q", name))
}

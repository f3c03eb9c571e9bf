package installer

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// staleTmpThreshold is how old an orphaned tmp-install directory must be
// before Sweep removes it (spec §4.5 step 10/§8: "a startup sweep removes
// orphaned tmp dirs").
const staleTmpThreshold = 24 * time.Hour

// Sweep removes tmp install directories left behind by a crash or
// cancellation mid-install, run once at process startup. It only removes
// entries older than staleTmpThreshold so it never races a concurrently
// running install in another process.
func Sweep(tmpDir string) error {
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-staleTmpThreshold)
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) < 8 || e.Name()[:8] != "install-" {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		os.RemoveAll(filepath.Join(tmpDir, e.Name()))
	}
	return nil
}

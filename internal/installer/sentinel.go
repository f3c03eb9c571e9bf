package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vxdev/vx/internal/paths"
)

func sentinelPath(installDir string) string {
	return filepath.Join(installDir, paths.Sentinel)
}

// Sentinel is the provenance record written inside a completed install
// directory (spec §6: stable keys version/source_url/checksum/
// checksum_algorithm/installed_at_iso8601).
type Sentinel struct {
	Version           string    `json:"version"`
	SourceURL         string    `json:"source_url"`
	Checksum          string    `json:"checksum,omitempty"`
	ChecksumAlgorithm string    `json:"checksum_algorithm,omitempty"`
	InstalledAt       time.Time `json:"installed_at_iso8601"`
}

// WriteSentinel writes s into installDir, the final step before the
// install directory is atomically renamed into place.
func WriteSentinel(installDir string, s Sentinel) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sentinelPath(installDir), data, 0o644)
}

// ReadSentinel reads the sentinel from a completed install directory.
func ReadSentinel(installDir string) (Sentinel, error) {
	var s Sentinel
	data, err := os.ReadFile(sentinelPath(installDir))
	if err != nil {
		return Sentinel{}, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Sentinel{}, err
	}
	return s, nil
}

// HasValidSentinel reports whether installDir contains a parseable
// sentinel, i.e. whether the install is complete (spec §4.5 step 2,
// idempotence check).
func HasValidSentinel(installDir string) bool {
	_, err := ReadSentinel(installDir)
	return err == nil
}

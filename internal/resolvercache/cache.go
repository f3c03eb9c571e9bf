// Package resolvercache implements spec §4.10's on-disk resolution
// cache: entries keyed by a hash of (platform, cwd, argv, manifest
// digest, registry fingerprint), storing a serialized ResolutionGraph
// alongside the key it was saved under, so a reader rejects a file that
// holds another key's entry. Grounded on tomei's internal/state Store
// load/save-atomic-rename idiom, generalized from a single global state
// file to many small keyed entries.
package resolvercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	vxerrors "github.com/vxdev/vx/internal/errors"
)

// Digest hashes arbitrary bytes (e.g. a vx.toml's contents) for use as a
// cache-key component.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key computes the resolution-cache key from every input that must be
// equal for a cached graph to still be valid (spec §3
// "ResolutionCacheKey").
func Key(platform, cwd string, argv []string, manifestDigest, registryFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(platform))
	h.Write([]byte{0})
	h.Write([]byte(cwd))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(argv, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(manifestDigest))
	h.Write([]byte{0})
	h.Write([]byte(registryFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// entry is the on-disk envelope: the key is stored alongside the payload
// so Load can reject a misplaced or corrupted file whose recorded key
// differs from the requested one, without trusting the file name alone.
type entry[T any] struct {
	Key     string `json:"key"`
	Payload T      `json:"payload"`
}

// Cache is a directory of key -> serialized-graph files.
type Cache struct {
	dir string
}

// New builds a Cache rooted at dir (typically paths.CacheResolutions()).
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Save writes graph under key, atomically (write tmp, rename). The
// resolution cache is best-effort: concurrent writers may race and the
// last one wins (spec §5 "Shared-resource policy").
func Save[T any](c *Cache, key string, payload T) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return vxerrors.NewStateError(c.dir, "create resolution cache directory", err)
	}
	data, err := json.Marshal(entry[T]{Key: key, Payload: payload})
	if err != nil {
		return vxerrors.NewStateError(c.path(key), "marshal resolution cache entry", err)
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return vxerrors.NewStateError(tmp, "write resolution cache entry", err)
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		return vxerrors.NewStateError(c.path(key), "commit resolution cache entry", err)
	}
	return nil
}

// Load reads the entry for key, returning ok=false if it doesn't exist or
// its embedded key doesn't match (a stale/corrupted entry never used).
func Load[T any](c *Cache, key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return zero, false
	}
	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return zero, false
	}
	if e.Key != key {
		return zero, false
	}
	return e.Payload, true
}

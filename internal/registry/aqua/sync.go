package aqua

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// syncState is the on-disk record of the last aqua-registry ref this
// store synced to, kept at a small standalone JSON file under
// Paths.Config().
type syncState struct {
	Ref       string    `json:"ref"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncRegistry fetches the latest aqua-registry ref and records it at
// statePath if it differs from the last recorded one. Grounded on
// tomei's aqua.SyncRegistry, re-themed from the whole-system UserState
// onto a small standalone JSON record (vx has no global apply-state to
// thread this through).
func SyncRegistry(ctx context.Context, statePath string) error {
	newRef, err := NewFetcher("").LatestRegistryRef(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest aqua registry ref: %w", err)
	}

	var current syncState
	if data, err := os.ReadFile(statePath); err == nil {
		_ = json.Unmarshal(data, &current)
	}

	if current.Ref == newRef {
		slog.Info("aqua registry is up to date", "ref", newRef)
		return nil
	}

	next := syncState{Ref: newRef, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal aqua registry state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(statePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to save aqua registry state: %w", err)
	}

	slog.Info("aqua registry updated", "from", current.Ref, "to", newRef)
	return nil
}

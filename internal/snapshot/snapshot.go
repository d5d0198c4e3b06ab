// Package snapshot persists the last-seen scan state as a JSON document.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/scan"
)

// Snapshot is the last-known state of the scanned tree.
type Snapshot struct {
	LastScan time.Time                  `json:"last_scan"`
	Projects map[string]scan.Descriptor `json:"projects"`
}

// Empty returns a snapshot with no projects.
func Empty() Snapshot {
	return Snapshot{Projects: map[string]scan.Descriptor{}}
}

// Store reads and overwrites the snapshot file.
type Store struct {
	path string
}

// NewStore returns a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file is an empty snapshot. An unreadable
// or malformed file also yields an empty snapshot, together with an error
// wrapping ErrSnapshotCorrupt so the caller can report it.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), fmt.Errorf("reading %s: %v: %w", s.path, err, perrors.ErrSnapshotCorrupt)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Empty(), fmt.Errorf("parsing %s: %v: %w", s.path, err, perrors.ErrSnapshotCorrupt)
	}
	if snap.Projects == nil {
		snap.Projects = map[string]scan.Descriptor{}
	}
	return snap, nil
}

// Save replaces the snapshot file atomically.
func (s *Store) Save(snap Snapshot) error {
	if snap.Projects == nil {
		snap.Projects = map[string]scan.Descriptor{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Writable reports whether the snapshot directory accepts new files.
func (s *Store) Writable() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

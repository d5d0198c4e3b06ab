package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/scan"
)

func TestLoad_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snap.json"))
	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Projects)
	assert.NotNil(t, snap.Projects)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snap.json")
	s := NewStore(path)

	d := scan.NewDescriptor("/srv/tech/alpha", scan.BrandTech, "alpha", []scan.FileEntry{
		{Path: "README.md", Size: 10, ModTime: 1700000000},
	})
	in := Snapshot{
		LastScan: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		Projects: map[string]scan.Descriptor{d.Path: d},
	}
	require.NoError(t, s.Save(in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"last_scan\""), "indented for humans")

	out, err := s.Load()
	require.NoError(t, err)
	assert.True(t, in.LastScan.Equal(out.LastScan))
	assert.Equal(t, in.Projects, out.Projects)
}

func TestSave_FullReplace(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snap.json"))
	require.NoError(t, s.Save(Snapshot{Projects: map[string]scan.Descriptor{
		"/a": {Path: "/a"}, "/b": {Path: "/b"},
	}}))
	require.NoError(t, s.Save(Snapshot{Projects: map[string]scan.Descriptor{"/c": {Path: "/c"}}}))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, out.Projects, 1)
	assert.Contains(t, out.Projects, "/c")
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"projects": [`), 0o644))

	snap, err := NewStore(path).Load()
	assert.ErrorIs(t, err, perrors.ErrSnapshotCorrupt)
	assert.Empty(t, snap.Projects)
	assert.NotNil(t, snap.Projects)
}

func TestLoad_NullProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_scan":"2026-01-01T00:00:00Z","projects":null}`), 0o644))

	snap, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.NotNil(t, snap.Projects)
}

func TestWritable(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "data", "snap.json"))
	assert.NoError(t, s.Writable())
}

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath, zerolog.New(os.Stderr))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedBrand(t *testing.T, s *Store, slug string) *Brand {
	t.Helper()
	b, err := s.EnsureBrand(context.Background(), "Brand "+slug, slug)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func TestNew_CreatesDB(t *testing.T) {
	store := newTestStore(t)

	tables := []string{"brands", "projects", "tasks", "content_items", "ai_runs", "audit_log", "meta"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	version, err := store.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s1, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	seedBrand(t, s1, "tech")
	require.NoError(t, s1.Close())

	s2, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	brands, err := s2.ListBrands(context.Background())
	require.NoError(t, err)
	assert.Len(t, brands, 1)
}

func TestBrand_EnsureAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b1 := seedBrand(t, store, "tech")
	b2, err := store.EnsureBrand(ctx, "Renamed", "tech")
	require.NoError(t, err)
	assert.Equal(t, b1.ID, b2.ID)
	assert.Equal(t, "Renamed", b2.Name)

	missing, err := store.GetBrandBySlug(ctx, "games")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProject_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	brand := seedBrand(t, store, "tech")

	p := &Project{
		BrandID:  brand.ID,
		Name:     "alpha",
		Type:     "python_app",
		Status:   "wip",
		Priority: "medium",
		Meta: ProjectMeta{
			FilesystemPath: "/srv/tech/alpha",
			Tags:           []string{"python_app", "automation", "ai"},
			InferredProperties: InferredProperties{
				FileCount: 2, TotalSize: 42, LastModified: 1700000000,
			},
		},
	}
	require.NoError(t, store.CreateProject(ctx, p))
	assert.NotEmpty(t, p.ID)

	found, err := store.FindProjectByPath(ctx, "/srv/tech/alpha")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, p.Meta, found.Meta)

	found.Status = "ready_for_demo"
	found.Meta = ProjectMeta{FilesystemPath: "/srv/tech/alpha", Tags: []string{"tool"}}
	require.NoError(t, store.UpdateProject(ctx, found))

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ready_for_demo", got.Status)
	assert.Equal(t, []string{"tool"}, got.Meta.Tags)
	assert.Zero(t, got.Meta.InferredProperties.FileCount, "meta is replaced, not merged")

	none, err := store.FindProjectByPath(ctx, "/srv/tech/beta")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProject_UniqueFilesystemPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	brand := seedBrand(t, store, "tech")

	mk := func() *Project {
		return &Project{BrandID: brand.ID, Name: "alpha", Type: "tool", Status: "wip", Priority: "medium",
			Meta: ProjectMeta{FilesystemPath: "/srv/tech/alpha"}}
	}
	require.NoError(t, store.CreateProject(ctx, mk()))
	err := store.CreateProject(ctx, mk())
	require.Error(t, err)
	assert.True(t, perrors.IsPersistence(err))

	// Unlinked projects may share the empty path.
	require.NoError(t, store.CreateProject(ctx, &Project{BrandID: brand.ID, Name: "manual-1", Type: "tool", Status: "idea", Priority: "low"}))
	require.NoError(t, store.CreateProject(ctx, &Project{BrandID: brand.ID, Name: "manual-2", Type: "tool", Status: "idea", Priority: "low"}))
}

func TestProject_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateProject(context.Background(), &Project{ID: "nope"})
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestProject_ListAndStageCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tech := seedBrand(t, store, "tech")
	records := seedBrand(t, store, "records")

	for i, st := range []string{"wip", "wip", "prototype"} {
		require.NoError(t, store.CreateProject(ctx, &Project{
			BrandID: tech.ID, Name: string(rune('a' + i)), Type: "tool", Status: st, Priority: "medium",
		}))
	}
	require.NoError(t, store.CreateProject(ctx, &Project{
		BrandID: records.ID, Name: "song", Type: "song", Status: "mix", Priority: "medium",
	}))

	all, err := store.ListProjects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	techOnly, err := store.ListProjects(ctx, tech.ID)
	require.NoError(t, err)
	assert.Len(t, techOnly, 3)

	counts, err := store.ProjectStageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StageCount{
		{BrandSlug: "records", Status: "mix", Count: 1},
		{BrandSlug: "tech", Status: "prototype", Count: 1},
		{BrandSlug: "tech", Status: "wip", Count: 2},
	}, counts)
}

func TestTask_NaturalKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	brand := seedBrand(t, store, "tech")
	p := &Project{BrandID: brand.ID, Name: "alpha", Type: "tool", Status: "wip", Priority: "medium"}
	require.NoError(t, store.CreateProject(ctx, p))

	task := &Task{
		ProjectID: p.ID, BrandID: brand.ID, Title: "Add minimal tests", Status: "open",
		Priority: "medium", Source: "filesystem_sync", CreatedBy: "agent", AssignedTo: "human",
	}
	require.NoError(t, store.CreateTask(ctx, task))

	found, err := store.FindTask(ctx, p.ID, "Add minimal tests", "filesystem_sync")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, task.ID, found.ID)
	assert.Equal(t, "human", found.AssignedTo)

	dup := *task
	dup.ID = ""
	assert.Error(t, store.CreateTask(ctx, &dup), "natural key is unique for filesystem_sync tasks")

	manual := *task
	manual.ID = ""
	manual.Source = "manual"
	require.NoError(t, store.CreateTask(ctx, &manual))

	tasks, err := store.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	missing, err := store.FindTask(ctx, p.ID, "Other", "filesystem_sync")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestContentItem_NaturalKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	brand := seedBrand(t, store, "records")

	item := &ContentItem{BrandID: brand.ID, ProjectID: "p-1", Title: "Teaser: night", Type: "teaser",
		Status: "idea", Source: "filesystem_sync"}
	require.NoError(t, store.CreateContentItem(ctx, item))

	found, err := store.FindContentItem(ctx, "Teaser: night", "filesystem_sync")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p-1", found.ProjectID)
	assert.Equal(t, "teaser", found.Type)

	dup := *item
	dup.ID = ""
	assert.Error(t, store.CreateContentItem(ctx, &dup))

	items, err := store.ListContentItems(ctx, brand.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRun_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.StartRun(ctx, "filesystem_sync_agent", "/srv")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, ok.ID, "projects_scanned=1", true, ""))
	assert.Error(t, store.CompleteRun(ctx, ok.ID, "again", true, ""), "a run completes once")

	failed, err := store.StartRun(ctx, "filesystem_sync_agent", "/srv")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, failed.ID, "", false, "boom"))

	_, err = store.StartRun(ctx, "filesystem_sync_agent", "/srv")
	require.NoError(t, err)

	got, err := store.GetRun(ctx, failed.ID)
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.NotZero(t, got.CompletedAt)

	stats, err := store.RunStats(ctx, "filesystem_sync_agent")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Open)
	require.NotNil(t, stats.LastError)
	assert.Equal(t, failed.ID, stats.LastError.ID)

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestAudit_AppendAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, action := range []string{"new_project_detected", "project_updated", "project_deleted"} {
		require.NoError(t, store.AppendAudit(ctx, &AuditEntry{
			ActorType: "agent", ActorID: "filesystem_sync_agent", Action: action,
			EntityType: "project", EntityID: "alpha",
			Details: map[string]any{"path": "/srv/tech/alpha"},
		}))
	}

	all, err := store.ListAudit(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "project_deleted", all[0].Action, "most recent first")
	assert.Equal(t, "/srv/tech/alpha", all[0].Details["path"])

	deleted, err := store.ListAudit(ctx, AuditFilter{Action: "project_deleted", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}

func TestPingAndSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))
	size, err := store.DBSizeBytes(ctx)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

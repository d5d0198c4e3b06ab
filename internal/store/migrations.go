package store

import (
	"fmt"
	"strconv"
)

// SchemaVersion is the latest migration applied by migrate.
const SchemaVersion = 2

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) schemaVersion() (int, error) {
	var version string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		return 0, err
	}
	return strconv.Atoi(version)
}

func (s *Store) setSchemaVersion(v int) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', ?)`, strconv.Itoa(v))
	return err
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS brands (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL REFERENCES brands(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		filesystem_path TEXT NOT NULL DEFAULT '',
		meta TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_brand ON projects(brand_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		brand_id TEXT NOT NULL REFERENCES brands(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		priority TEXT NOT NULL DEFAULT 'medium',
		source TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		assigned_to TEXT NOT NULL DEFAULT '',
		meta TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

	CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL REFERENCES brands(id),
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		meta TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ai_runs (
		id TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL,
		input_summary TEXT NOT NULL DEFAULT '',
		output_summary TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		meta TEXT NOT NULL DEFAULT '{}',
		started_at INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_ai_runs_started ON ai_runs(started_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);

	INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	return nil
}

// migrateV2 adds the uniqueness guarantees the reconciler relies on:
// one project per filesystem path and one derived row per natural key.
func (s *Store) migrateV2() error {
	version, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= 2 {
		return nil
	}

	schema := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_fs_path
		ON projects(filesystem_path) WHERE filesystem_path <> '';

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_natural_key
		ON tasks(project_id, title, source) WHERE source = 'filesystem_sync';

	CREATE UNIQUE INDEX IF NOT EXISTS idx_content_natural_key
		ON content_items(title, source) WHERE source = 'filesystem_sync';
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}
	if err := s.setSchemaVersion(2); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

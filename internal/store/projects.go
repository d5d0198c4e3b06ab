package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// InferredProperties are the scan statistics recorded on a linked project.
type InferredProperties struct {
	FileCount    int   `json:"file_count"`
	TotalSize    int64 `json:"total_size"`
	LastModified int64 `json:"last_modified"`
}

// ProjectMeta is the metadata blob of a project linked to a folder.
type ProjectMeta struct {
	FilesystemPath     string             `json:"filesystem_path,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	LastScanTime       string             `json:"last_scan_time,omitempty"`
	InferredProperties InferredProperties `json:"inferred_properties"`
}

// Project is a persisted project record.
type Project struct {
	ID          string      `json:"id"`
	BrandID     string      `json:"brand_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	Meta        ProjectMeta `json:"meta"`
	CreatedAt   int64       `json:"created_at"`
	UpdatedAt   int64       `json:"updated_at"`
}

// StageCount is the number of projects of one brand in one lifecycle stage.
type StageCount struct {
	BrandSlug string `json:"brand"`
	Status    string `json:"status"`
	Count     int    `json:"count"`
}

const projectColumns = `id, brand_id, name, description, type, status, priority, meta, created_at, updated_at`

// CreateProject inserts a project. The filesystem path column mirrors Meta.FilesystemPath.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := nowMillis()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode project meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, brand_id, name, description, type, status, priority,
			filesystem_path, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.BrandID, p.Name, p.Description, p.Type, p.Status, p.Priority,
		p.Meta.FilesystemPath, string(meta), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return perrors.NewPersistenceError("create", "project", err)
	}
	return nil
}

// UpdateProject overwrites type, status, description and metadata. Metadata is
// replaced as a whole.
func (s *Store) UpdateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode project meta: %w", err)
	}
	p.UpdatedAt = nowMillis()

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET type = ?, status = ?, description = ?, filesystem_path = ?,
			meta = ?, updated_at = ?
		WHERE id = ?`,
		p.Type, p.Status, p.Description, p.Meta.FilesystemPath, string(meta), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return perrors.NewPersistenceError("update", "project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return perrors.NewPersistenceError("update", "project", err)
	}
	if n == 0 {
		return perrors.NewPersistenceError("update", "project", fmt.Errorf("%s: %w", p.ID, perrors.ErrNotFound))
	}
	return nil
}

// FindProjectByPath returns the project linked to a folder, or nil, nil.
func (s *Store) FindProjectByPath(ctx context.Context, path string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE filesystem_path = ? AND filesystem_path <> ''`, path)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("find", "project", err)
	}
	return p, nil
}

// GetProject returns nil, nil when the id is unknown.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("get", "project", err)
	}
	return p, nil
}

// ListProjects returns projects, optionally restricted to one brand id.
func (s *Store) ListProjects(ctx context.Context, brandID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if brandID != "" {
		query += ` WHERE brand_id = ?`
		args = append(args, brandID)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "project", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, perrors.NewPersistenceError("scan", "project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "project", err)
	}
	return projects, nil
}

// ProjectStageCounts groups projects by brand slug and status.
func (s *Store) ProjectStageCounts(ctx context.Context) ([]StageCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.slug, p.status, COUNT(*)
		FROM projects p JOIN brands b ON b.id = p.brand_id
		GROUP BY b.slug, p.status
		ORDER BY b.slug, p.status`)
	if err != nil {
		return nil, perrors.NewPersistenceError("count", "project", err)
	}
	defer rows.Close()

	var counts []StageCount
	for rows.Next() {
		var c StageCount
		if err := rows.Scan(&c.BrandSlug, &c.Status, &c.Count); err != nil {
			return nil, perrors.NewPersistenceError("scan", "project", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("count", "project", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var meta string
	if err := row.Scan(&p.ID, &p.BrandID, &p.Name, &p.Description, &p.Type, &p.Status,
		&p.Priority, &meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
			return nil, fmt.Errorf("decoding meta of project %s: %w", p.ID, err)
		}
	}
	return p, nil
}

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

// ContentItem is a piece of planned marketing content.
type ContentItem struct {
	ID        string `json:"id"`
	BrandID   string `json:"brand_id"`
	ProjectID string `json:"project_id,omitempty"` // stored in meta
	Title     string `json:"title"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type contentMeta struct {
	ProjectID string `json:"project_id,omitempty"`
}

const contentColumns = `id, brand_id, title, type, status, source, meta, created_at, updated_at`

// CreateContentItem inserts a content item.
func (s *Store) CreateContentItem(ctx context.Context, c *ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := nowMillis()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	meta, err := json.Marshal(contentMeta{ProjectID: c.ProjectID})
	if err != nil {
		return fmt.Errorf("failed to encode content meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_items (`+contentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BrandID, c.Title, c.Type, c.Status, c.Source, string(meta), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return perrors.NewPersistenceError("create", "content_item", err)
	}
	return nil
}

// FindContentItem looks an item up by its natural key, returning nil, nil when absent.
func (s *Store) FindContentItem(ctx context.Context, title, source string) (*ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+` FROM content_items
		WHERE title = ? AND source = ?
		LIMIT 1`, title, source)
	c, err := scanContentItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("find", "content_item", err)
	}
	return c, nil
}

// ListContentItems returns items, optionally restricted to one brand id.
func (s *Store) ListContentItems(ctx context.Context, brandID string) ([]*ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + contentColumns + ` FROM content_items`
	var args []any
	if brandID != "" {
		query += ` WHERE brand_id = ?`
		args = append(args, brandID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "content_item", err)
	}
	defer rows.Close()

	var items []*ContentItem
	for rows.Next() {
		c, err := scanContentItem(rows)
		if err != nil {
			return nil, perrors.NewPersistenceError("scan", "content_item", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "content_item", err)
	}
	return items, nil
}

func scanContentItem(row rowScanner) (*ContentItem, error) {
	c := &ContentItem{}
	var meta string
	if err := row.Scan(&c.ID, &c.BrandID, &c.Title, &c.Type, &c.Status, &c.Source,
		&meta, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	var m contentMeta
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &m); err != nil {
			return nil, fmt.Errorf("decoding meta of content item %s: %w", c.ID, err)
		}
	}
	c.ProjectID = m.ProjectID
	return c, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// Brand is a business line that owns projects.
type Brand struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt int64  `json:"created_at"`
}

// EnsureBrand inserts the brand if its slug is unknown and refreshes its name otherwise.
func (s *Store) EnsureBrand(ctx context.Context, name, slug string) (*Brand, error) {
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, name, slug, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name`,
		uuid.NewString(), name, slug, nowMillis(),
	)
	s.mu.Unlock()
	if err != nil {
		return nil, perrors.NewPersistenceError("ensure", "brand", err)
	}
	return s.GetBrandBySlug(ctx, slug)
}

// GetBrandBySlug returns nil, nil when no brand has the slug.
func (s *Store) GetBrandBySlug(ctx context.Context, slug string) (*Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := &Brand{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM brands WHERE slug = ?`, slug,
	).Scan(&b.ID, &b.Name, &b.Slug, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("get", "brand", err)
	}
	return b, nil
}

// ListBrands returns all brands ordered by slug.
func (s *Store) ListBrands(ctx context.Context) ([]*Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug, created_at FROM brands ORDER BY slug`)
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "brand", err)
	}
	defer rows.Close()

	var brands []*Brand
	for rows.Next() {
		b := &Brand{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.CreatedAt); err != nil {
			return nil, perrors.NewPersistenceError("scan", "brand", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "brand", err)
	}
	return brands, nil
}

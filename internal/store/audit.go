package store

import (
	"context"
	"encoding/json"
	"fmt"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// AuditEntry is one append-only audit log row.
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  int64          `json:"created_at"`
}

// AuditFilter narrows ListAudit.
type AuditFilter struct {
	Action string
	Limit  int
}

// AppendAudit inserts an audit entry. Entries are never updated or deleted.
func (s *Store) AppendAudit(ctx context.Context, e *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	details := []byte("{}")
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = nowMillis()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_type, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ActorType, e.ActorID, e.Action, e.EntityType, e.EntityID, string(details), e.CreatedAt,
	)
	if err != nil {
		return perrors.NewPersistenceError("append", "audit_log", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// ListAudit returns the most recent entries first.
func (s *Store) ListAudit(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, actor_type, actor_id, action, entity_type, entity_id, details, created_at FROM audit_log`
	var args []any
	if f.Action != "" {
		query += ` WHERE action = ?`
		args = append(args, f.Action)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, clampLimit(f.Limit, 50, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "audit_log", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		var details string
		if err := rows.Scan(&e.ID, &e.ActorType, &e.ActorID, &e.Action, &e.EntityType,
			&e.EntityID, &details, &e.CreatedAt); err != nil {
			return nil, perrors.NewPersistenceError("scan", "audit_log", err)
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("decoding audit details %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "audit_log", err)
	}
	return entries, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// Task is a follow-up item attached to a project.
type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	BrandID     string `json:"brand_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`   // open, in_progress, done
	Priority    string `json:"priority"` // low, medium, high
	Source      string `json:"source"`
	CreatedBy   string `json:"created_by"`
	AssignedTo  string `json:"assigned_to"`
	CreatedAt   int64  `json:"created_at"` // unix ms
	UpdatedAt   int64  `json:"updated_at"` // unix ms
}

const taskColumns = `id, project_id, brand_id, title, description, status, priority, source,
	created_by, assigned_to, created_at, updated_at`

// CreateTask inserts a task.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := nowMillis()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.BrandID, t.Title, t.Description, t.Status, t.Priority, t.Source,
		t.CreatedBy, t.AssignedTo, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return perrors.NewPersistenceError("create", "task", err)
	}
	return nil
}

// FindTask looks a task up by its natural key, returning nil, nil when absent.
func (s *Store) FindTask(ctx context.Context, projectID, title, source string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE project_id = ? AND title = ? AND source = ?
		LIMIT 1`, projectID, title, source)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("find", "task", err)
	}
	return t, nil
}

// ListTasks returns the tasks of one project in creation order.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE project_id = ?
		ORDER BY created_at, rowid`, projectID)
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "task", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, perrors.NewPersistenceError("scan", "task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "task", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.ProjectID, &t.BrandID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.Source, &t.CreatedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

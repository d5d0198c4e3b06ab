package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// Run is the accounting record of one agent cycle.
type Run struct {
	ID            string `json:"id"`
	AgentName     string `json:"agent_name"`
	InputSummary  string `json:"input_summary"`
	OutputSummary string `json:"output_summary"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message,omitempty"`
	StartedAt     int64  `json:"started_at"`             // unix ms
	CompletedAt   int64  `json:"completed_at,omitempty"` // unix ms, 0 = still open
}

// RunStats summarizes run history.
type RunStats struct {
	Total     int  `json:"total"`
	Failed    int  `json:"failed"`
	Open      int  `json:"open"`
	LastRun   *Run `json:"last_run,omitempty"`
	LastError *Run `json:"last_failure,omitempty"`
}

const runColumns = `id, agent_name, input_summary, output_summary, success, error_message, started_at, completed_at`

// StartRun opens a run record and returns it.
func (s *Store) StartRun(ctx context.Context, agentName, input string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Run{
		ID:           uuid.NewString(),
		AgentName:    agentName,
		InputSummary: input,
		StartedAt:    nowMillis(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_runs (id, agent_name, input_summary, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.AgentName, r.InputSummary, r.StartedAt,
	)
	if err != nil {
		return nil, perrors.NewPersistenceError("start", "run", err)
	}
	return r, nil
}

// CompleteRun closes a run record exactly once.
func (s *Store) CompleteRun(ctx context.Context, id, output string, success bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_runs SET output_summary = ?, success = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND completed_at IS NULL`,
		output, success, errMsg, nowMillis(), id,
	)
	if err != nil {
		return perrors.NewPersistenceError("complete", "run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return perrors.NewPersistenceError("complete", "run", err)
	}
	if n == 0 {
		return perrors.NewPersistenceError("complete", "run", fmt.Errorf("open run %s: %w", id, perrors.ErrNotFound))
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM ai_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, clampLimit(limit, 20, 500))
	if err != nil {
		return nil, perrors.NewPersistenceError("list", "run", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, perrors.NewPersistenceError("scan", "run", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list", "run", err)
	}
	return runs, nil
}

// RunStats counts total, failed and still-open runs for one agent.
func (s *Store) RunStats(ctx context.Context, agentName string) (*RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &RunStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN completed_at IS NOT NULL AND success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN completed_at IS NULL THEN 1 ELSE 0 END), 0)
		FROM ai_runs WHERE agent_name = ?`, agentName,
	).Scan(&st.Total, &st.Failed, &st.Open)
	if err != nil {
		return nil, perrors.NewPersistenceError("stats", "run", err)
	}

	last, err := s.queryOneRun(ctx, `WHERE agent_name = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, agentName)
	if err != nil {
		return nil, err
	}
	st.LastRun = last

	lastErr, err := s.queryOneRun(ctx,
		`WHERE agent_name = ? AND completed_at IS NOT NULL AND success = 0 ORDER BY started_at DESC, rowid DESC LIMIT 1`, agentName)
	if err != nil {
		return nil, err
	}
	st.LastError = lastErr
	return st, nil
}

// GetRun returns nil, nil when the id is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryOneRun(ctx, `WHERE id = ?`, id)
}

func (s *Store) queryOneRun(ctx context.Context, where string, args ...any) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ai_runs `+where, args...)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("get", "run", err)
	}
	return r, nil
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var completedAt sql.NullInt64
	if err := row.Scan(&r.ID, &r.AgentName, &r.InputSummary, &r.OutputSummary, &r.Success,
		&r.ErrorMessage, &r.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = completedAt.Int64
	}
	return r, nil
}

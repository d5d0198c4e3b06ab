package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistenceError_Error(t *testing.T) {
	err := NewPersistenceError("insert", "project", errors.New("disk full"))
	assert.Contains(t, err.Error(), "insert")
	assert.Contains(t, err.Error(), "project")
	assert.Contains(t, err.Error(), "disk full")
}

func TestPersistenceError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := fmt.Errorf("reconcile: %w", NewPersistenceError("update", "task", inner))
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsPersistence(err))
	assert.False(t, IsPersistence(inner))
}

func TestNewPersistenceError_Nil(t *testing.T) {
	assert.NoError(t, NewPersistenceError("insert", "project", nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsRetryable(NewPersistenceError("insert", "audit", errors.New("database table is locked"))))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrBrandNotFound))
	assert.False(t, IsRetryable(errors.New("UNIQUE constraint failed: tasks.title")))
}

func TestSentinelErrors(t *testing.T) {
	wrapped := fmt.Errorf("scan /tmp/x: %w", ErrPathOutsideAllowedRoot)
	assert.True(t, errors.Is(wrapped, ErrPathOutsideAllowedRoot))
	assert.False(t, errors.Is(wrapped, ErrBrandNotFound))
}

// Package errors provides the error taxonomy shared by the scanner, the
// reconciler and the operator API.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure modes callers branch on.
var (
	ErrPathOutsideAllowedRoot = errors.New("path outside allowed root")
	ErrBrandNotFound          = errors.New("brand not found")
	ErrSnapshotCorrupt        = errors.New("snapshot unreadable or malformed")
	ErrCycleInProgress        = errors.New("scan cycle already in progress")
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
)

// PersistenceError wraps a failed read or write against the relational store.
type PersistenceError struct {
	Op     string
	Entity string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err. It returns nil when err is nil.
func NewPersistenceError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Entity: entity, Err: err}
}

// IsPersistence reports whether err came from the store.
func IsPersistence(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

// IsRetryable returns true if the error is likely transient and worth retrying.
// SQLite reports lock contention as SQLITE_BUSY / SQLITE_LOCKED text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

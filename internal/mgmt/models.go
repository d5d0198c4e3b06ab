// Package mgmt provides the operator API for the sync service.
package mgmt

import (
	"github.com/p-blackswan/projectsync/internal/health"
	"github.com/p-blackswan/projectsync/internal/store"
)

// --- Request DTOs ---

// RunSyncRequest is the optional payload for POST /api/v1/system/run_filesystem_sync.
type RunSyncRequest struct {
	Root string `json:"root,omitempty"`
}

// --- Response DTOs ---

// RunSyncResponse is the outcome of a triggered cycle.
type RunSyncResponse struct {
	ProjectsScanned int    `json:"projects_scanned"`
	ChangesDetected int    `json:"changes_detected"`
	UpdatesApplied  int    `json:"updates_applied"`
	ChangesFailed   int    `json:"changes_failed"`
	RunID           string `json:"run_id"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// RunSummaryResponse is returned by GET /api/v1/runs/summary.
type RunSummaryResponse struct {
	store.RunStats
	InProgress bool `json:"in_progress"`
}

// ReadinessResponse is returned by /readyz.
type ReadinessResponse = health.Report

// --- Error types ---

// ProblemDetail represents an RFC 7807 Problem Details response.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Package reconcile diffs scans against the last snapshot and writes the
// classified changes back to the store.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/projectsync/internal/classify"
	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/overview"
	"github.com/p-blackswan/projectsync/internal/retry"
	"github.com/p-blackswan/projectsync/internal/store"
)

// AgentName identifies the sync agent in run records and the audit log.
const AgentName = "filesystem_sync_agent"

// Audit actions written by the engine.
const (
	ActionNewProject     = "new_project_detected"
	ActionProjectUpdated = "project_updated"
	ActionProjectDeleted = "project_deleted"
	ActionMemoryUpdated  = "memory_updated"
	ActionScanCompleted  = "filesystem_scan_completed"
	ActionScanFailed     = "filesystem_scan_failed"
)

// Persistence is the subset of the store the reconciler writes through.
type Persistence interface {
	GetBrandBySlug(ctx context.Context, slug string) (*store.Brand, error)
	FindProjectByPath(ctx context.Context, path string) (*store.Project, error)
	CreateProject(ctx context.Context, p *store.Project) error
	UpdateProject(ctx context.Context, p *store.Project) error
	FindTask(ctx context.Context, projectID, title, source string) (*store.Task, error)
	CreateTask(ctx context.Context, t *store.Task) error
	FindContentItem(ctx context.Context, title, source string) (*store.ContentItem, error)
	CreateContentItem(ctx context.Context, c *store.ContentItem) error
	AppendAudit(ctx context.Context, e *store.AuditEntry) error
}

// OverviewWriter appends a line to the projects overview note.
type OverviewWriter interface {
	Append(entry string) error
}

// Reconciler applies one classified change to the store.
type Reconciler struct {
	store      Persistence
	brandSlugs map[string]string
	overview   OverviewWriter
	retry      retry.Config
	logger     zerolog.Logger
	now        func() time.Time
}

// NewReconciler creates a reconciler. brandSlugs maps scan folders to brand
// slugs. note may be nil.
func NewReconciler(st Persistence, brandSlugs map[string]string, note OverviewWriter, retryCfg retry.Config, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:      st,
		brandSlugs: brandSlugs,
		overview:   note,
		retry:      retryCfg,
		logger:     logger.With().Str("component", "reconciler").Logger(),
		now:        time.Now,
	}
}

// Reconcile writes change to the store. It reports whether a project row was
// created or updated. A missing brand returns an error wrapping ErrBrandNotFound.
func (r *Reconciler) Reconcile(ctx context.Context, change Change, res classify.Result) (bool, error) {
	d := change.Descriptor
	if change.Kind == classify.DeletedProject {
		err := r.audit(ctx, ActionProjectDeleted, "project", d.Name, map[string]any{"path": d.Path})
		return false, err
	}

	brand, err := r.resolveBrand(ctx, res.Summary.Brand)
	if err != nil {
		return false, err
	}

	project, err := r.upsertProject(ctx, brand, change, res)
	if err != nil {
		return false, err
	}

	for _, t := range res.Tasks {
		if err := r.ensureTask(ctx, project, t); err != nil {
			return true, err
		}
	}
	for _, c := range res.ContentItems {
		if err := r.ensureContentItem(ctx, project, c); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (r *Reconciler) resolveBrand(ctx context.Context, folder string) (*store.Brand, error) {
	slug, ok := r.brandSlugs[folder]
	if !ok {
		return nil, fmt.Errorf("no brand mapped to folder %q: %w", folder, perrors.ErrBrandNotFound)
	}
	var brand *store.Brand
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var err error
		brand, err = r.store.GetBrandBySlug(ctx, slug)
		return err
	})
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, fmt.Errorf("brand %q: %w", slug, perrors.ErrBrandNotFound)
	}
	return brand, nil
}

func (r *Reconciler) upsertProject(ctx context.Context, brand *store.Brand, change Change, res classify.Result) (*store.Project, error) {
	d := change.Descriptor

	var existing *store.Project
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var err error
		existing, err = r.store.FindProjectByPath(ctx, d.Path)
		return err
	})
	if err != nil {
		return nil, err
	}

	meta := store.ProjectMeta{
		FilesystemPath: d.Path,
		Tags:           append([]string(nil), res.Project.Tags...),
		LastScanTime:   r.now().UTC().Format(time.RFC3339),
		InferredProperties: store.InferredProperties{
			FileCount:    d.FileCount,
			TotalSize:    d.TotalSize,
			LastModified: d.LastModified,
		},
	}
	details := map[string]any{"path": d.Path, "brand": res.Summary.Brand}

	if existing != nil {
		existing.Type = res.Project.Type
		existing.Status = res.Project.Status
		existing.Description = res.Project.Description
		existing.Meta = meta
		if err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
			return r.store.UpdateProject(ctx, existing)
		}); err != nil {
			return nil, err
		}
		if err := r.audit(ctx, ActionProjectUpdated, "project", existing.ID, details); err != nil {
			return nil, err
		}
		r.logger.Info().Str("project_id", existing.ID).Str("path", d.Path).Str("status", existing.Status).Msg("Project updated")
		return existing, nil
	}

	project := &store.Project{
		BrandID:     brand.ID,
		Name:        res.Summary.Name,
		Description: res.Project.Description,
		Type:        res.Project.Type,
		Status:      res.Project.Status,
		Priority:    classify.PriorityMedium,
		Meta:        meta,
	}
	if err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		project.ID = ""
		return r.store.CreateProject(ctx, project)
	}); err != nil {
		return nil, err
	}
	if err := r.audit(ctx, ActionNewProject, "project", project.ID, details); err != nil {
		return nil, err
	}
	r.logger.Info().Str("project_id", project.ID).Str("path", d.Path).Str("type", project.Type).Msg("New project detected")

	r.appendOverview(ctx, res)
	return project, nil
}

// appendOverview never fails the change: a note that cannot be written is
// only logged.
func (r *Reconciler) appendOverview(ctx context.Context, res classify.Result) {
	if r.overview == nil {
		return
	}
	entry := overview.NewProjectEntry(r.now(), res.Summary.Brand, res.Summary.Name, res.Summary.Status)
	if err := r.overview.Append(entry); err != nil {
		r.logger.Warn().Err(err).Str("project", res.Summary.Name).Msg("Failed to append projects overview")
		return
	}
	if err := r.audit(ctx, ActionMemoryUpdated, "memory", "projects_overview", map[string]any{"entry": entry}); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to audit overview update")
	}
}

func (r *Reconciler) ensureTask(ctx context.Context, project *store.Project, s classify.TaskSuggestion) error {
	return retry.Do(ctx, r.retry, func(ctx context.Context) error {
		existing, err := r.store.FindTask(ctx, project.ID, s.Title, classify.SourceFilesystemSync)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		priority := s.Priority
		if priority == "" {
			priority = classify.PriorityMedium
		}
		return r.store.CreateTask(ctx, &store.Task{
			ProjectID:   project.ID,
			BrandID:     project.BrandID,
			Title:       s.Title,
			Description: s.Description,
			Status:      "open",
			Priority:    priority,
			Source:      classify.SourceFilesystemSync,
			CreatedBy:   "agent",
			AssignedTo:  "human",
		})
	})
}

func (r *Reconciler) ensureContentItem(ctx context.Context, project *store.Project, s classify.ContentSuggestion) error {
	return retry.Do(ctx, r.retry, func(ctx context.Context) error {
		existing, err := r.store.FindContentItem(ctx, s.Title, classify.SourceFilesystemSync)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		return r.store.CreateContentItem(ctx, &store.ContentItem{
			BrandID:   project.BrandID,
			ProjectID: project.ID,
			Title:     s.Title,
			Type:      s.Type,
			Status:    s.Status,
			Source:    classify.SourceFilesystemSync,
		})
	})
}

func (r *Reconciler) audit(ctx context.Context, action, entityType, entityID string, details map[string]any) error {
	return retry.Do(ctx, r.retry, func(ctx context.Context) error {
		return r.store.AppendAudit(ctx, &store.AuditEntry{
			ActorType:  "agent",
			ActorID:    AgentName,
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			Details:    details,
		})
	})
}

package mgmt

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/health"
	"github.com/p-blackswan/projectsync/internal/reconcile"
	"github.com/p-blackswan/projectsync/internal/store"
)

// ActionSyncTriggered is audited when an operator starts a cycle.
const ActionSyncTriggered = "filesystem_sync_triggered"

// SyncRunner runs a sync cycle on demand.
type SyncRunner interface {
	Run(ctx context.Context, rootOverride string) (reconcile.Outcome, error)
	Running() bool
}

// ReadStore is the store surface the API reads and audits through.
type ReadStore interface {
	ListBrands(ctx context.Context) ([]*store.Brand, error)
	GetBrandBySlug(ctx context.Context, slug string) (*store.Brand, error)
	ListProjects(ctx context.Context, brandID string) ([]*store.Project, error)
	GetProject(ctx context.Context, id string) (*store.Project, error)
	ListTasks(ctx context.Context, projectID string) ([]*store.Task, error)
	ListContentItems(ctx context.Context, brandID string) ([]*store.ContentItem, error)
	ListRuns(ctx context.Context, limit int) ([]*store.Run, error)
	RunStats(ctx context.Context, agentName string) (*store.RunStats, error)
	ListAudit(ctx context.Context, f store.AuditFilter) ([]*store.AuditEntry, error)
	AppendAudit(ctx context.Context, e *store.AuditEntry) error
}

// Handlers holds the operator API handlers.
type Handlers struct {
	runner  SyncRunner
	store   ReadStore
	checker *health.Checker
	logger  zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(runner SyncRunner, st ReadStore, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		runner:  runner,
		store:   st,
		checker: checker,
		logger:  logger.With().Str("component", "mgmt_handlers").Logger(),
	}
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	report := h.checker.Report(c.UserContext())
	if !report.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// RunFilesystemSync handles POST /api/v1/system/run_filesystem_sync.
func (h *Handlers) RunFilesystemSync(c *fiber.Ctx) error {
	var req RunSyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_request", "Bad Request", "Request body must be JSON: {\"root\": \"...\"}")
		}
	}
	ctx := c.UserContext()
	actor := actorOf(c)

	if err := h.store.AppendAudit(ctx, &store.AuditEntry{
		ActorType:  "user",
		ActorID:    actor,
		Action:     ActionSyncTriggered,
		EntityType: "system",
		EntityID:   "filesystem_sync",
		Details:    map[string]any{"root": req.Root, "request_id": c.Locals("request_id")},
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to audit sync trigger")
	}

	out, err := h.runner.Run(ctx, strings.TrimSpace(req.Root))
	switch {
	case err == nil:
		return c.JSON(RunSyncResponse{
			ProjectsScanned: out.ProjectsScanned,
			ChangesDetected: out.ChangesDetected,
			UpdatesApplied:  out.UpdatesApplied,
			ChangesFailed:   out.ChangesFailed,
			RunID:           out.RunID,
		})
	case errors.Is(err, perrors.ErrPathOutsideAllowedRoot):
		return problemResponse(c, fiber.StatusBadRequest,
			"path_outside_allowed_root", "Bad Request", "Scan root must resolve inside the allowed root")
	case errors.Is(err, perrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_request", "Bad Request", err.Error())
	case errors.Is(err, perrors.ErrCycleInProgress):
		return problemResponse(c, fiber.StatusConflict,
			"cycle_in_progress", "Conflict", "A filesystem sync cycle is already running")
	case perrors.IsPersistence(err):
		h.logger.Error().Err(err).Str("actor", actor).Str("run_id", out.RunID).Msg("Triggered sync failed on the store")
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"store_unavailable", "Service Unavailable", "The project database is unavailable")
	default:
		h.logger.Error().Err(err).Str("actor", actor).Str("run_id", out.RunID).Msg("Triggered sync failed")
		detail := "Filesystem sync failed"
		if out.RunID != "" {
			detail += "; see run " + out.RunID
		}
		return problemResponse(c, fiber.StatusInternalServerError,
			"sync_failed", "Internal Server Error", detail)
	}
}

// ListBrands handles GET /api/v1/brands.
func (h *Handlers) ListBrands(c *fiber.Ctx) error {
	brands, err := h.store.ListBrands(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(newList(brands))
}

// ListProjects handles GET /api/v1/projects?brand=slug.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	brandID := ""
	if slug := c.Query("brand"); slug != "" {
		brand, err := h.store.GetBrandBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if brand == nil {
			return problemResponse(c, fiber.StatusNotFound,
				"brand_not_found", "Not Found", "Unknown brand "+slug)
		}
		brandID = brand.ID
	}
	projects, err := h.store.ListProjects(ctx, brandID)
	if err != nil {
		return err
	}
	return c.JSON(newList(projects))
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if p == nil {
		return projectNotFound(c)
	}
	return c.JSON(p)
}

// ListProjectTasks handles GET /api/v1/projects/:id/tasks.
func (h *Handlers) ListProjectTasks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	p, err := h.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return projectNotFound(c)
	}
	tasks, err := h.store.ListTasks(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(newList(tasks))
}

// ListContent handles GET /api/v1/content?brand=slug.
func (h *Handlers) ListContent(c *fiber.Ctx) error {
	ctx := c.UserContext()
	brandID := ""
	if slug := c.Query("brand"); slug != "" {
		brand, err := h.store.GetBrandBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if brand == nil {
			return problemResponse(c, fiber.StatusNotFound,
				"brand_not_found", "Not Found", "Unknown brand "+slug)
		}
		brandID = brand.ID
	}
	items, err := h.store.ListContentItems(ctx, brandID)
	if err != nil {
		return err
	}
	return c.JSON(newList(items))
}

// ListRuns handles GET /api/v1/runs?limit=n.
func (h *Handlers) ListRuns(c *fiber.Ctx) error {
	runs, err := h.store.ListRuns(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(newList(runs))
}

// RunSummary handles GET /api/v1/runs/summary.
func (h *Handlers) RunSummary(c *fiber.Ctx) error {
	stats, err := h.store.RunStats(c.UserContext(), reconcile.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(RunSummaryResponse{RunStats: *stats, InProgress: h.runner.Running()})
}

// ListAudit handles GET /api/v1/audit?limit=n&action=name.
func (h *Handlers) ListAudit(c *fiber.Ctx) error {
	entries, err := h.store.ListAudit(c.UserContext(), store.AuditFilter{
		Action: c.Query("action"),
		Limit:  c.QueryInt("limit", 50),
	})
	if err != nil {
		return err
	}
	return c.JSON(newList(entries))
}

func projectNotFound(c *fiber.Ctx) error {
	return problemResponse(c, fiber.StatusNotFound,
		"project_not_found", "Not Found", "Unknown project "+c.Params("id"))
}

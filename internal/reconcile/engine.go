package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/projectsync/internal/classify"
	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/retry"
	"github.com/p-blackswan/projectsync/internal/scan"
	"github.com/p-blackswan/projectsync/internal/snapshot"
	"github.com/p-blackswan/projectsync/internal/store"
)

// Store is everything a cycle needs from persistence.
type Store interface {
	Persistence
	StartRun(ctx context.Context, agentName, input string) (*store.Run, error)
	CompleteRun(ctx context.Context, id, output string, success bool, errMsg string) error
	ProjectStageCounts(ctx context.Context) ([]store.StageCount, error)
	DBSizeBytes(ctx context.Context) (int64, error)
}

// Scanner produces descriptors for a root.
type Scanner interface {
	Resolve(root string) (string, error)
	Scan(ctx context.Context, root string) (map[string]scan.Descriptor, error)
}

// SnapshotStore loads and replaces the last-seen scan state.
type SnapshotStore interface {
	Load() (snapshot.Snapshot, error)
	Save(snapshot.Snapshot) error
}

// Outcome is the result of one cycle.
type Outcome struct {
	ProjectsScanned int    `json:"projects_scanned"`
	ChangesDetected int    `json:"changes_detected"`
	UpdatesApplied  int    `json:"updates_applied"`
	ChangesFailed   int    `json:"changes_failed"`
	RunID           string `json:"run_id"`
}

// Summary is the text stored as the run's output summary.
func (o Outcome) Summary() string {
	return fmt.Sprintf("projects_scanned=%d, changes=%d, updates=%d, failed=%d",
		o.ProjectsScanned, o.ChangesDetected, o.UpdatesApplied, o.ChangesFailed)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	DefaultRoot string
	Retry       retry.Config
}

// Engine runs scan cycles. At most one cycle runs at a time.
type Engine struct {
	cfg        EngineConfig
	scanner    Scanner
	snapshots  SnapshotStore
	store      Store
	reconciler *Reconciler
	metrics    MetricsSink
	logger     zerolog.Logger
	running    atomic.Bool
	now        func() time.Time
}

// NewEngine wires an engine. A nil sink disables metrics.
func NewEngine(cfg EngineConfig, scanner Scanner, snapshots SnapshotStore, st Store, reconciler *Reconciler, sink MetricsSink, logger zerolog.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		cfg:        cfg,
		scanner:    scanner,
		snapshots:  snapshots,
		store:      st,
		reconciler: reconciler,
		metrics:    sink,
		logger:     logger.With().Str("component", "sync_engine").Logger(),
		now:        time.Now,
	}
}

// Running reports whether a cycle is in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run executes one cycle against rootOverride, or the default root when empty.
// A concurrent call fails with ErrCycleInProgress.
func (e *Engine) Run(ctx context.Context, rootOverride string) (Outcome, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.metrics.ObserveCycle(CycleSkipped, 0)
		return Outcome{}, perrors.ErrCycleInProgress
	}
	defer e.running.Store(false)

	start := e.now()
	root := rootOverride
	if root == "" {
		root = e.cfg.DefaultRoot
	}

	resolved, pathErr := e.scanner.Resolve(root)
	input := root
	if pathErr == nil {
		input = resolved
	}

	// Run accounting outlives cancellation of the caller.
	wctx := context.WithoutCancel(ctx)
	var run *store.Run
	err := retry.Do(wctx, e.cfg.Retry, func(ctx context.Context) error {
		var err error
		run, err = e.store.StartRun(ctx, AgentName, input)
		return err
	})
	if err != nil {
		e.metrics.ObserveCycle(CycleFailed, e.now().Sub(start))
		e.logger.Error().Err(err).Str("root", input).Msg("Failed to open run record")
		return Outcome{}, fmt.Errorf("starting run: %w", err)
	}

	out := Outcome{RunID: run.ID}
	log := e.logger.With().Str("run_id", run.ID).Str("root", input).Logger()

	if pathErr != nil {
		return out, e.fail(ctx, log, out, start, pathErr)
	}

	prev, err := e.snapshots.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot unreadable, treating as empty")
	}

	current, err := e.scanner.Scan(ctx, resolved)
	if err != nil {
		return out, e.fail(ctx, log, out, start, fmt.Errorf("scanning: %w", err))
	}

	changes := Detect(current, prev.Projects)
	out.ProjectsScanned = len(current)
	out.ChangesDetected = len(changes)

	next := make(map[string]scan.Descriptor, len(current))
	for path, d := range current {
		next[path] = d
	}

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return out, e.fail(ctx, log, out, start, err)
		}
		applied, err := e.apply(ctx, change)
		kind := string(change.Kind)
		switch {
		case err == nil:
			if applied {
				out.UpdatesApplied++
				e.metrics.RecordChange(kind, OutcomeApplied)
			} else {
				e.metrics.RecordChange(kind, OutcomeAudited)
			}
		case errors.Is(err, perrors.ErrBrandNotFound):
			if applied {
				out.UpdatesApplied++
			}
			e.metrics.RecordChange(kind, OutcomeSkipped)
			log.Warn().Err(err).Str("path", change.Descriptor.Path).Msg("Skipping project without brand")
		default:
			if applied {
				out.UpdatesApplied++
			}
			out.ChangesFailed++
			e.metrics.RecordChange(kind, OutcomeFailed)
			log.Error().Err(err).Str("path", change.Descriptor.Path).Str("kind", kind).Msg("Change failed, will retry next cycle")
			path := change.Descriptor.Path
			if old, ok := prev.Projects[path]; ok {
				next[path] = old
			} else {
				delete(next, path)
			}
		}
	}

	if err := e.snapshots.Save(snapshot.Snapshot{LastScan: e.now().UTC(), Projects: next}); err != nil {
		return out, e.fail(ctx, log, out, start, fmt.Errorf("saving snapshot: %w", err))
	}

	if err := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		return e.store.CompleteRun(ctx, run.ID, out.Summary(), true, "")
	}); err != nil {
		log.Error().Err(err).Msg("Failed to complete run record")
	}

	if err := e.reconciler.audit(ctx, ActionScanCompleted, "system", "filesystem_sync", map[string]any{
		"projects_scanned": out.ProjectsScanned,
		"changes_detected": out.ChangesDetected,
		"updates_applied":  out.UpdatesApplied,
		"changes_failed":   out.ChangesFailed,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to audit scan completion")
	}

	e.refreshGauges(ctx, log)
	elapsed := e.now().Sub(start)
	e.metrics.ObserveCycle(CycleSuccess, elapsed)
	log.Info().
		Int("projects_scanned", out.ProjectsScanned).
		Int("changes_detected", out.ChangesDetected).
		Int("updates_applied", out.UpdatesApplied).
		Int("changes_failed", out.ChangesFailed).
		Dur("duration", elapsed).
		Msg("Filesystem sync completed")
	return out, nil
}

func (e *Engine) apply(ctx context.Context, change Change) (bool, error) {
	var res classify.Result
	if change.Kind != classify.DeletedProject {
		var err error
		res, err = classify.Classify(change.Descriptor, change.Kind)
		if err != nil {
			return false, err
		}
		e.logger.Debug().Msg(res.LogMessage)
	}
	return e.reconciler.Reconcile(ctx, change, res)
}

// fail closes the run record with the error. It keeps writing after ctx is
// cancelled so an aborted cycle is still accounted for.
func (e *Engine) fail(ctx context.Context, log zerolog.Logger, out Outcome, start time.Time, cause error) error {
	wctx := context.WithoutCancel(ctx)
	if err := retry.Do(wctx, e.cfg.Retry, func(ctx context.Context) error {
		return e.store.CompleteRun(ctx, out.RunID, out.Summary(), false, cause.Error())
	}); err != nil {
		log.Error().Err(err).Msg("Failed to complete run record")
	}
	if err := e.reconciler.audit(wctx, ActionScanFailed, "system", "filesystem_sync", map[string]any{
		"error": cause.Error(),
	}); err != nil {
		log.Error().Err(err).Msg("Failed to audit scan failure")
	}
	e.metrics.ObserveCycle(CycleFailed, e.now().Sub(start))
	log.Error().Err(cause).Msg("Filesystem sync failed")
	return cause
}

func (e *Engine) refreshGauges(ctx context.Context, log zerolog.Logger) {
	if size, err := e.store.DBSizeBytes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read database size")
	} else {
		e.metrics.SetDBSizeBytes(size)
	}

	counts, err := e.store.ProjectStageCounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count projects by stage")
		return
	}
	e.metrics.ResetProjectsByStage()
	for _, c := range counts {
		e.metrics.SetProjectsByStage(c.BrandSlug, c.Status, c.Count)
	}
}

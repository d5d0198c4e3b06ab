// Package scheduler runs the sync engine on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/reconcile"
)

// Runner executes one sync cycle.
type Runner interface {
	Run(ctx context.Context, rootOverride string) (reconcile.Outcome, error)
}

// Scheduler triggers Runner immediately on Start and then every interval.
// Cycle errors are logged and never escape a tick.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   zerolog.Logger
	cron     *cron.Cron
	job      cron.Job
	ctx      context.Context
	first    sync.WaitGroup
}

// New creates a scheduler.
func New(runner Runner, interval time.Duration, logger zerolog.Logger) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{l}
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   l,
		cron:     cron.New(cron.WithLogger(cl)),
		ctx:      context.Background(),
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.tick))
	return s
}

// Start schedules the job and fires the first cycle right away. ctx is
// passed to every cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid sync interval %s", s.interval)
	}
	s.ctx = ctx
	s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()
	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.job.Run()
	}()
	s.logger.Info().Dur("interval", s.interval).Msg("Scheduler started")
	return nil
}

// Stop halts scheduling. The returned context is done once every running
// cycle finishes, including the one fired by Start.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info().Msg("Scheduler stopping")
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.first.Wait()
		cancel()
	}()
	return ctx
}

func (s *Scheduler) tick() {
	out, err := s.runner.Run(s.ctx, "")
	switch {
	case err == nil:
		s.logger.Debug().Str("run_id", out.RunID).Int("changes", out.ChangesDetected).Msg("Scheduled cycle finished")
	case errors.Is(err, perrors.ErrCycleInProgress):
		s.logger.Debug().Msg("Cycle already running, tick skipped")
	default:
		s.logger.Error().Err(err).Str("run_id", out.RunID).Msg("Scheduled cycle failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

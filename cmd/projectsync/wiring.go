package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/projectsync/internal/config"
	"github.com/p-blackswan/projectsync/internal/metrics"
	"github.com/p-blackswan/projectsync/internal/overview"
	"github.com/p-blackswan/projectsync/internal/reconcile"
	"github.com/p-blackswan/projectsync/internal/retry"
	"github.com/p-blackswan/projectsync/internal/scan"
	"github.com/p-blackswan/projectsync/internal/snapshot"
	"github.com/p-blackswan/projectsync/internal/store"
)

// service holds the components shared by serve and scan.
type service struct {
	store     *store.Store
	snapshots *snapshot.Store
	metrics   *metrics.Metrics
	engine    *reconcile.Engine
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store.Store, []config.Brand, error) {
	brands, err := config.LoadBrands(cfg.BrandsFile)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	for _, b := range brands {
		if _, err := st.EnsureBrand(ctx, b.Name, b.Slug); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("seeding brand %s: %w", b.Slug, err)
		}
	}
	return st, brands, nil
}

func buildService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*service, error) {
	st, brands, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, err error) {
		m.RecordRetry()
		logger.Debug().Err(err).Int("attempt", attempt).Msg("Retrying store operation")
	}
	snapshots := snapshot.NewStore(cfg.SnapshotPath)
	reconciler := reconcile.NewReconciler(st, config.BrandSlugs(brands), overview.NewNote(cfg.OverviewPath), retryCfg, logger)

	engine := reconcile.NewEngine(reconcile.EngineConfig{
		DefaultRoot: cfg.SyncRoot,
		Retry:       retryCfg,
	}, scan.NewScanner(cfg.EffectiveAllowedRoot(), logger), snapshots, st, reconciler, m, logger)

	return &service{store: st, snapshots: snapshots, metrics: m, engine: engine}, nil
}

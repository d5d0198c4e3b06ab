package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/projectsync/internal/health"
	"github.com/p-blackswan/projectsync/internal/mgmt"
	"github.com/p-blackswan/projectsync/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic sync scheduler and the operator API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("root", cfg.SyncRoot).
		Str("allowed_root", cfg.EffectiveAllowedRoot()).
		Dur("interval", cfg.EffectiveSyncInterval()).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Msg("starting projectsync")

	// Context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.store.Close()

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("database", health.ErrCheck(svc.store.Ping))
	checker.Register("snapshot_dir", health.ErrCheck(func(context.Context) error {
		return svc.snapshots.Writable()
	}))

	sched := scheduler.New(svc.engine, cfg.EffectiveSyncInterval(), logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	server := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr: cfg.MgmtListenAddr,
		AuthConfig: mgmt.AuthConfig{
			Mode:      cfg.MgmtAuthMode,
			APIKey:    cfg.MgmtAPIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: mgmt.RateLimitConfig{
			RPS:   cfg.MgmtRateLimitRPS,
			Burst: cfg.MgmtRateLimitBurst,
		},
		CORSOrigins: cfg.MgmtCORSOrigins,
		TLSCert:     cfg.MgmtTLSCert,
		TLSKey:      cfg.MgmtTLSKey,
	}, svc.engine, svc.store, checker, svc.metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down gracefully")
	case err := <-errCh:
		logger.Error().Err(err).Msg("operator API server error")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("operator API shutdown error")
	}

	// Wait for an in-flight cycle
	select {
	case <-sched.Stop().Done():
		logger.Info().Msg("scheduler stopped")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("projectsync stopped")
	return nil
}

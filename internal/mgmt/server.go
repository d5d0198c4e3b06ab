package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/health"
	"github.com/p-blackswan/projectsync/internal/requestid"
)

// ServerConfig holds configuration for the operator API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	TLSCert     string
	TLSKey      string
}

// RequestRecorder counts API requests and errors.
type RequestRecorder interface {
	Handler() http.Handler
	RecordRequest(route, status string)
	RecordError(module, errType string)
}

// Server is the operator API Fiber application.
type Server struct {
	app     *fiber.App
	limiter *RateLimiter
	logger  zerolog.Logger
	config  ServerConfig
}

// NewServer creates and configures a new operator API server. metrics may be nil.
func NewServer(
	cfg ServerConfig,
	runner SyncRunner,
	st ReadStore,
	checker *health.Checker,
	metrics RequestRecorder,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger, metrics),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "mgmt_server").Logger(),
		config: cfg,
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}

	s.setupMiddleware(cfg, metrics, logger)
	s.setupRoutes(NewHandlers(runner, st, checker, logger), metrics)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, metrics RequestRecorder, logger zerolog.Logger) {
	// Recovery middleware
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.FromHeader(c.UserContext(), c.Get(requestid.Header))
		c.SetUserContext(ctx)
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	// Request metrics
	if metrics != nil {
		s.app.Use(func(c *fiber.Ctx) error {
			err := c.Next()
			status := c.Response().StatusCode()
			if err != nil {
				var fe *fiber.Error
				if errors.As(err, &fe) {
					status = fe.Code
				} else {
					status = fiber.StatusInternalServerError
				}
			}
			metrics.RecordRequest(c.Route().Path, fmt.Sprintf("%dxx", status/100))
			return err
		})
	}

	// CORS middleware
	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	// Rate limiter
	if s.limiter != nil {
		s.app.Use(s.limiter.Middleware())
	}

	// Auth middleware
	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, logger))

	// Access log
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		// Skip noisy probe logging
		if isProbe(path) {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("actor", actorOf(c)).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("mgmt api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, metrics RequestRecorder) {
	// Probe endpoints (auth is skipped in the auth middleware)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	v1 := s.app.Group("/api/v1")

	v1.Post("/system/run_filesystem_sync", requireRole(RoleAdmin), h.RunFilesystemSync)

	read := requireRole(RoleReadOnly)
	v1.Get("/brands", read, h.ListBrands)
	v1.Get("/projects", read, h.ListProjects)
	v1.Get("/projects/:id", read, h.GetProject)
	v1.Get("/projects/:id/tasks", read, h.ListProjectTasks)
	v1.Get("/content", read, h.ListContent)
	v1.Get("/runs", read, h.ListRuns)
	v1.Get("/runs/summary", read, h.RunSummary)
	v1.Get("/audit", read, h.ListAudit)
}

// Start runs the rate limiter janitor and listens. Blocks until stopped.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	s.logger.Info().Str("addr", addr).Msg("operator API server starting")

	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		return s.app.ListenTLS(addr, s.config.TLSCert, s.config.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("operator API server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger, metrics RequestRecorder) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code == fiber.StatusNotFound {
			return problemResponse(c, code, "not_found", "Not Found", "No route matches "+c.Method()+" "+c.Path())
		}
		if perrors.IsPersistence(err) {
			logger.Error().Err(err).Str("path", c.Path()).Msg("store error")
			if metrics != nil {
				metrics.RecordError("mgmt", "store")
			}
			return problemResponse(c, fiber.StatusServiceUnavailable,
				"store_unavailable", "Service Unavailable", "The project database is unavailable")
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")
		if metrics != nil {
			metrics.RecordError("mgmt", "unhandled")
		}

		errType, detail := "request_error", err.Error()
		// Don't leak internal details
		if code == fiber.StatusInternalServerError {
			errType, detail = "internal_error", "An internal error occurred"
		}
		return problemResponse(c, code, errType, http.StatusText(code), detail)
	}
}

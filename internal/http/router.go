package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"qtumor/internal/classify"
	"qtumor/internal/config"
	"qtumor/internal/jobs"
	"qtumor/internal/metrics"
)

type Server struct {
	app        *fiber.App
	config     *config.Config
	classifier *classify.Service
	redis      *redis.Client
	logger     *slog.Logger
}

func NewServer(cfg *config.Config, cls *classify.Service, logger *slog.Logger) *Server {
	app := fiber.New()

	// Inject config and classifier into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("classifier", cls)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		c.Set("X-Request-Id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", c.Path(),
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		} else if logger != nil {
			logger.Warn("redis_url_invalid", "error", err)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check the job store and Redis connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		storeStatus := "ok"
		if p, ok := cls.Store().(jobs.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				storeStatus = "error"
			}
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if storeStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"store":  cfg.Store.Driver,
			"db":     storeStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	authMw := authMiddleware(cfg)
	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/v1", authMw, rateMw)
	registerV1Routes(v1)

	return &Server{
		app:        app,
		config:     cfg,
		classifier: cls,
		redis:      rdb,
		logger:     logger,
	}
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and closes the rate limit client.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return err
}

func registerV1Routes(group fiber.Router) {
	group.Post("/jobs", submitJobHandler)
	group.Get("/jobs", jobsListHandler)
	group.Get("/jobs/:id", checkJobHandler)
	group.Delete("/jobs/:id", deleteJobHandler)
	group.Get("/backend", backendHandler)
	group.Post("/backend/select", backendSelectHandler)
}

package httpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/health"
	publicroutes "github.com/voxgate/voxgate/internal/httpserver/public"
)

// Server wraps the Fiber app and configuration.
type Server struct {
	app       *fiber.App
	container *app.Container
}

// New constructs a server with baseline middleware ready.
func New(container *app.Container) (*Server, error) {
	if container == nil {
		return nil, fmt.Errorf("dependency container is required")
	}
	cfg := container.Config
	if cfg == nil {
		return nil, fmt.Errorf("container missing config")
	}

	bodyLimit := cfg.Server.BodyLimitMB * 1024 * 1024
	fapp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ServerHeader:          "voxgate",
		BodyLimit:             bodyLimit,
		ReadBufferSize:        4 * 1024,
		WriteBufferSize:       4 * 1024,
	})

	fapp.Use(requestid.New())
	fapp.Use(logger.New())
	fapp.Use(recover.New())

	if container.Observability != nil {
		fapp.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			route := ""
			if r := c.Route(); r != nil {
				route = r.Path
			}
			if route == "" {
				route = c.Path()
			}
			container.Observability.RecordHTTPRequest(c.UserContext(), c.Method(), route, c.Response().StatusCode(), time.Since(start))
			return err
		})

		if handler := container.Observability.PrometheusHandler(); handler != nil {
			fapp.Get("/metrics", adaptor.HTTPHandler(handler))
		}
	}

	registerHealthRoutes(fapp, container)
	publicroutes.Register(fapp, container)

	return &Server{
		app:       fapp,
		container: container,
	}, nil
}

// Listen blocks until context cancellation or a fatal listen error occurs.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.container.Config.Server.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		timeout := s.container.Config.Server.GracefulShutdownDelay
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.app.ShutdownWithContext(shutdownCtx)
		if err == nil {
			err = <-errCh
		}
		return err
	case err := <-errCh:
		return err
	}
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func registerHealthRoutes(fapp *fiber.App, container *app.Container) {
	fapp.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	fapp.Get("/readyz", func(c *fiber.Ctx) error {
		overall, _ := container.Health.Report(container.HealthThresholds())
		status := fiber.StatusOK
		if overall == health.Fail {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"status": overall.String()})
	})

	fapp.Get("/healthz", func(c *fiber.Ctx) error {
		overall, checks := container.Health.Report(container.HealthThresholds())
		providerChecks := make(map[string]fiber.Map, len(checks))
		for _, check := range checks {
			entry := fiber.Map{
				"status":         check.Status,
				"total_requests": check.Snapshot.TotalRequests,
				"error_rate":     check.Snapshot.ErrorRate,
			}
			if check.Output != "" {
				entry["output"] = check.Output
			}
			if !check.Snapshot.LastSuccess.IsZero() {
				entry["last_success"] = check.Snapshot.LastSuccess
			}
			if check.Snapshot.LastError != nil {
				entry["last_error"] = check.Snapshot.LastError
			}
			providerChecks[check.Name] = entry
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": overall.String(),
			"checks": providerChecks,
		})
	})
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"propchat/app/config"
	"propchat/app/service/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const shutdownTimeout = 5 * time.Second

// Server exposes chat sessions to the browser widget.
type Server struct {
	app      *fiber.App
	addr     string
	registry *session.Registry
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(cfg.Server.Addr, do.MustInvoke[*session.Registry](di)), nil
}

func NewServer(addr string, registry *session.Registry) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "propchat",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger())

	s := &Server{
		app:      app,
		addr:     addr,
		registry: registry,
	}

	s.register(app)

	return s
}

func (s *Server) register(r fiber.Router) {
	r.Get("/health", s.health)

	sessions := r.Group("/api/sessions")
	sessions.Post("", s.createSession)
	sessions.Get("/:id", s.getSession)
	sessions.Delete("/:id", s.deleteSession)
	sessions.Post("/:id/messages", s.postMessage)
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return oops.In("server").Wrapf(err, "shutdown")
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return oops.In("server").With("addr", s.addr).Wrapf(err, "listen")
		}
		return nil
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		slog.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start))

		return err
	}
}

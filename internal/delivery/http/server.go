package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/delivery/http/handler"
	"github.com/boundary-pipeline/internal/delivery/http/middleware"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	mapsHandler        *handler.MapsHandler
	diagnosticsHandler *handler.DiagnosticsHandler
	metricsHandler     http.Handler
}

// NewServer - создание нового HTTP сервера; metricsHandler может быть nil
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	mapsHandler *handler.MapsHandler,
	diagnosticsHandler *handler.DiagnosticsHandler,
	metricsHandler http.Handler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Boundary Pipeline",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:                app,
		config:             cfg,
		logger:             logger,
		mapsHandler:        mapsHandler,
		diagnosticsHandler: diagnosticsHandler,
		metricsHandler:     metricsHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App возвращает fiber.App (используется в тестах через app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	if s.metricsHandler != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metricsHandler))
	}

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", handler.Health)

	// Map files
	api.Get("/maps/*", s.mapsHandler.GetMapFile)

	// Diagnostics
	api.Get("/diagnostics", s.diagnosticsHandler.List)
	api.Get("/runs/latest", s.diagnosticsHandler.LatestRun)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "INTERNAL_SERVER_ERROR"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			if code == fiber.StatusNotFound {
				errCode = "NOT_FOUND"
			}
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    errCode,
				"message": err.Error(),
			},
		})
	}
}

package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/handler"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/config"
)

// Services are the application services the HTTP API exposes. Checks back
// the /health endpoint and may be empty.
type Services struct {
	Accounts  service.AccountService
	Movements service.MovementService
	Entries   service.EntryService
	Directory service.DirectoryService
	Orders    service.OrderService
	Checks    map[string]HealthCheck
}

// Server is the gateway's HTTP listener
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	router     *gin.Engine
}

// NewServer mounts every route on a fresh gin engine. limiter may be nil.
func NewServer(log *slog.Logger, cfg *config.Config, services Services, limiter middleware.Limiter) (*Server, error) {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	setupRouter(log, router, handlers{
		accounts:  handler.NewAccountHandler(log, services.Accounts, services.Movements),
		movements: handler.NewMovementHandler(log, services.Movements),
		entries:   handler.NewEntryHandler(log, services.Entries),
		directory: handler.NewDirectoryHandler(log, services.Directory),
		orders:    handler.NewOrderHandler(log, services.Orders),
	}, limiter, services.Checks, cfg.Server.MetricsPath)

	return &Server{
		logger: log,
		router: router,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Stop is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop lets in-flight movements finish until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"retrievalagent/internal/config"
	"retrievalagent/requirements"
	"retrievalagent/retrieval"
	"retrievalagent/server/middleware"
	"retrievalagent/websearch"
)

// Runner выполняет запуск поиска
type Runner interface {
	Run(ctx context.Context, req *requirements.Requirement) (*retrieval.Result, error)
}

// StatsSource источник статистики провайдеров
type StatsSource interface {
	Stats() []websearch.ProviderStats
}

// Server HTTP API поиска мест
type Server struct {
	config     config.ServerConfig
	runner     Runner
	stats      StatsSource
	auth       *middleware.Authenticator
	logger     *slog.Logger
	router     *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer создает сервер. stats может быть nil
func NewServer(cfg config.ServerConfig, authCfg config.AuthConfig, runner Runner, stats StatsSource, logger *slog.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    cfg,
		runner:    runner,
		stats:     stats,
		auth:      middleware.NewAuthenticator(authCfg.SigningKey, authCfg.TokenTTL, authCfg.Users),
		logger:    logger,
		startedAt: time.Now(),
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.GinRequestIDMiddleware(),
		middleware.GinLoggerMiddleware(s.logger),
		middleware.GinRecoveryMiddleware(s.logger),
		middleware.GinCORSMiddleware(s.config.AllowedOrigins),
		middleware.GinGzipMiddleware(),
		middleware.GinErrorMiddleware(s.logger),
	)

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/providers/stats", s.handleProviderStats)
	api.POST("/token", s.handleToken)
	api.POST("/retrieval", middleware.GinJWTMiddleware(s.auth), s.handleRetrieval)

	registerSwaggerRoutes(router)
	return router
}

// Start запускает HTTP сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "port", s.config.Port, "auth", s.auth.Enabled())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown корректно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

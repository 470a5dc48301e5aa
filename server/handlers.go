package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"retrievalagent/requirements"
	"retrievalagent/retrieval"
	apperrors "retrievalagent/server/errors"
	"retrievalagent/server/middleware"
	"retrievalagent/websearch"
)

const maxRequestBody = 1 << 20

// HealthResponse ответ /api/health
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// TokenRequest тело запроса /api/token
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleHealth состояние сервера
// @Summary Проверка состояния
// @Description Возвращает статус и время работы сервера
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleProviderStats статистика источников мест
// @Summary Статистика провайдеров
// @Description Счетчики запросов, ошибок и задержек по каждому источнику
// @Tags system
// @Produce json
// @Success 200 {object} map[string][]websearch.ProviderStats
// @Router /providers/stats [get]
func (s *Server) handleProviderStats(c *gin.Context) {
	stats := []websearch.ProviderStats{}
	if s.stats != nil {
		stats = s.stats.Stats()
	}
	c.JSON(http.StatusOK, gin.H{"providers": stats})
}

// handleToken выдача JWT токена
// @Summary Получить токен
// @Description Обменивает логин и пароль на JWT токен для /retrieval
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Учетные данные"
// @Success 200 {object} map[string]string
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse "Авторизация выключена"
// @Router /token [post]
func (s *Server) handleToken(c *gin.Context) {
	if !s.auth.Enabled() {
		_ = c.Error(apperrors.NewNotFoundError("authentication is disabled", nil))
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid request payload", err))
		return
	}

	token, err := s.auth.IssueToken(req.Username, req.Password)
	if err != nil {
		_ = c.Error(apperrors.NewUnauthorizedError("invalid username or password", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// handleRetrieval запуск поиска мест
// @Summary Запустить поиск
// @Description Принимает требования поездки и возвращает матрицу кандидатов
// @Tags retrieval
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Требования поездки"
// @Success 200 {object} retrieval.Document
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /retrieval [post]
func (s *Server) handleRetrieval(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("failed to read request body", err))
		return
	}

	req, err := requirements.Parse(body)
	if err != nil {
		if requirements.IsValidationError(err) {
			_ = c.Error(apperrors.NewValidationError(err.Error(), err).WithContext("requirements.Parse"))
			return
		}
		_ = c.Error(apperrors.NewInternalError("failed to parse requirement", err))
		return
	}

	ctx := c.Request.Context()
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("retrieval run failed", err))
		return
	}

	s.logger.Info("retrieval request served",
		"request_id", middleware.GetRequestIDFromGin(c),
		"run_id", result.RunID,
		"decision", result.Decision,
		"candidates", len(result.Candidates))

	c.Header("X-Run-ID", result.RunID)
	c.Header("X-Retrieval-Decision", string(result.Decision))
	c.JSON(http.StatusOK, retrieval.Assemble(result.Candidates))
}

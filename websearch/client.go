package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"retrievalagent/places"
	"retrievalagent/websearch/types"
)

// DefaultRetryDelays задержки между повторами временных ошибок
var DefaultRetryDelays = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

// SleepFunc ожидание перед повтором; подменяется в тестах
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client клиент поиска мест с повторами и нормализацией.
// Создается на один запуск: кэш клиента не разделяется между запусками.
type Client struct {
	provider types.PlaceProvider
	cache    *Cache
	delays   []time.Duration
	sleep    SleepFunc
	logger   *slog.Logger
}

// ClientConfig конфигурация клиента
type ClientConfig struct {
	Provider    types.PlaceProvider
	Cache       *Cache
	RetryDelays []time.Duration
	Sleep       SleepFunc
	Logger      *slog.Logger
}

// NewClient создает новый клиент поиска мест
func NewClient(config ClientConfig) *Client {
	if config.RetryDelays == nil {
		config.RetryDelays = DefaultRetryDelays
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		provider: config.Provider,
		cache:    config.Cache,
		delays:   append([]time.Duration(nil), config.RetryDelays...),
		sleep:    config.Sleep,
		logger:   config.Logger,
	}
}

// Search выполняет поиск мест.
// Всегда возвращает непустой ответ; при ошибке список кандидатов пуст.
// Временные ошибки повторяются по расписанию задержек, после исчерпания
// возвращается ошибка, оборачивающая types.ErrRetriesExhausted.
// Постоянные ошибки не повторяются.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "websearch.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.category", req.Category),
		attribute.String("search.kind", string(req.Kind)),
		attribute.String("search.cluster", req.ClusterID),
		attribute.Float64("search.radius_km", req.RadiusKm),
		attribute.Float64("search.min_rating", req.MinRating),
	)

	response := &types.SearchResponse{
		Request:    req,
		Candidates: []places.Candidate{},
		Timestamp:  time.Now(),
	}

	if err := validateRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return response, err
	}
	if c.provider == nil {
		err := types.NewPermanentError("", "no place provider configured", nil)
		span.SetStatus(codes.Error, err.Error())
		return response, err
	}
	response.Provider = c.provider.GetName()

	cacheKey := generateCacheKey(req)
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			cached.FromCache = true
			span.SetAttributes(attribute.Bool("search.cache_hit", true))
			return cached, nil
		}
	}

	for attempt := 0; ; attempt++ {
		response.Attempts = attempt + 1

		venues, err := c.provider.Search(ctx, req)
		if err == nil {
			response.RawCount = len(venues)
			response.Candidates = normalizeVenues(req, venues, c.provider.GetName())
			if c.cache != nil {
				c.cache.Set(cacheKey, response)
			}
			span.SetAttributes(
				attribute.Int("search.attempts", response.Attempts),
				attribute.Int("search.candidates", len(response.Candidates)),
			)
			return response, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return response, fmt.Errorf("search cancelled: %w", ctxErr)
		}

		if types.IsPermanent(err) {
			c.logger.Warn("place search rejected",
				"provider", response.Provider,
				"category", req.Category,
				"cluster", req.ClusterID,
				"error", err)
			span.SetStatus(codes.Error, err.Error())
			return response, err
		}

		if attempt >= len(c.delays) {
			c.logger.Warn("place search retries exhausted",
				"provider", response.Provider,
				"category", req.Category,
				"cluster", req.ClusterID,
				"attempts", response.Attempts,
				"error", err)
			exhausted := fmt.Errorf("%w after %d attempts: %w", types.ErrRetriesExhausted, response.Attempts, err)
			span.SetStatus(codes.Error, exhausted.Error())
			return response, exhausted
		}

		delay := c.delays[attempt]
		c.logger.Debug("place search transient failure, retrying",
			"provider", response.Provider,
			"category", req.Category,
			"attempt", response.Attempts,
			"delay", delay,
			"error", err)

		if err := c.sleep(ctx, delay); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return response, fmt.Errorf("search cancelled: %w", err)
		}
	}
}

// CacheStats возвращает статистику кэша клиента
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.GetStats()
}

// validateRequest проверяет запрос до обращения к провайдеру
func validateRequest(req types.SearchRequest) error {
	var problems []string
	if strings.TrimSpace(req.Category) == "" {
		problems = append(problems, "category is empty")
	}
	if !req.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("unknown kind %q", req.Kind))
	}
	if !req.Center.Valid() {
		problems = append(problems, "center is out of range")
	}
	if req.RadiusKm <= 0 {
		problems = append(problems, "radius must be positive")
	}
	if req.MinRating < 0 || req.MinRating > 5 {
		problems = append(problems, "min rating must be within [0,5]")
	}
	if len(problems) > 0 {
		return types.NewPermanentError("", "malformed request", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// generateCacheKey генерирует ключ кэша для нормализованного запроса
func generateCacheKey(req types.SearchRequest) string {
	raw := fmt.Sprintf("%s|%s|%.6f|%.6f|%.3f|%.2f",
		strings.ToLower(strings.TrimSpace(req.Category)),
		req.Kind,
		req.Center.Latitude,
		req.Center.Longitude,
		req.RadiusKm,
		req.MinRating,
	)
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const tracerName = "retrievalagent/websearch"

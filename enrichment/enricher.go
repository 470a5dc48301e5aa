package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"retrievalagent/places"
	"retrievalagent/websearch"
	"retrievalagent/websearch/types"
)

// EnrichmentResult результат запроса деталей места
type EnrichmentResult struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	PlaceID string   `json:"place_id"`
	Name    string   `json:"name,omitempty"`
	Types   []string `json:"types,omitempty"`
	Address string   `json:"address,omitempty"`
	Rating  float64  `json:"rating,omitempty"`
}

// DetailsProvider сервис деталей места
type DetailsProvider interface {
	// Details возвращает расширенные атрибуты места по идентификатору
	Details(ctx context.Context, placeID string) (*types.Venue, error)

	// GetName возвращает название сервиса
	GetName() string
}

// CacheConfig конфигурация кэша
type CacheConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultCacheConfig возвращает конфигурацию кэша по умолчанию
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:         true,
		TTL:             24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Enricher дополняет финалистов без названия или тегов.
// Провайдеры опрашиваются по порядку, первый успешный ответ используется.
type Enricher struct {
	providers []DetailsProvider
	cache     *DetailsCache
	logger    *slog.Logger
}

// NewEnricher создает обогатитель; cache может быть nil
func NewEnricher(providers []DetailsProvider, cache *DetailsCache, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{providers: providers, cache: cache, logger: logger}
}

// NeedsEnrichment сообщает, что у кандидата нет названия или тегов кроме типа
func NeedsEnrichment(c places.Candidate) bool {
	if strings.TrimSpace(c.Name) == "" {
		return true
	}
	for _, tag := range c.Tags {
		if tag != string(c.Kind) {
			return false
		}
	}
	return true
}

// Enrich возвращает копии кандидатов с дополненными полями.
// Ошибки сервисов не фатальны: кандидат остается как есть.
func (e *Enricher) Enrich(ctx context.Context, candidates []places.Candidate) []places.Candidate {
	out := make([]places.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.Clone()
		if c.Scored || !NeedsEnrichment(c) || len(e.providers) == 0 {
			continue
		}
		result := e.lookup(ctx, c.PlaceID)
		if result == nil || !result.Success {
			continue
		}
		out[i] = merge(out[i], result)
	}
	return out
}

// lookup запрашивает детали через кэш и провайдеров по порядку
func (e *Enricher) lookup(ctx context.Context, placeID string) *EnrichmentResult {
	if e.cache != nil {
		if cached, ok := e.cache.Get(placeID); ok {
			return cached
		}
	}

	var last *EnrichmentResult
	for _, p := range e.providers {
		venue, err := p.Details(ctx, placeID)
		if err != nil {
			e.logger.Warn("details lookup failed",
				"provider", p.GetName(),
				"place_id", placeID,
				"transient", types.IsTransient(err),
				"error", err)
			last = &EnrichmentResult{Source: p.GetName(), Timestamp: time.Now(), PlaceID: placeID, Error: err.Error()}
			continue
		}
		result := &EnrichmentResult{
			Source:    p.GetName(),
			Timestamp: time.Now(),
			Success:   true,
			PlaceID:   placeID,
			Name:      venue.Name,
			Types:     venue.Types,
			Address:   venue.Address,
			Rating:    venue.Rating,
		}
		if e.cache != nil {
			e.cache.Set(placeID, result)
		}
		return result
	}
	return last
}

// merge заполняет только отсутствующие поля; новые теги добавляются в конец
func merge(c places.Candidate, r *EnrichmentResult) places.Candidate {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = websearch.NormalizeName(r.Name)
	}
	if c.Address == "" {
		c.Address = strings.TrimSpace(r.Address)
	}
	for _, t := range r.Types {
		tag := websearch.NormalizeTag(t)
		if tag == "" || c.HasTag(tag) {
			continue
		}
		c.Tags = append(c.Tags, tag)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c
}

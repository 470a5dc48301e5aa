package types

import (
	"context"
	"time"

	"retrievalagent/geo"
	"retrievalagent/places"
)

// SearchRequest запрос к сервису поиска мест
type SearchRequest struct {
	Category  string      `json:"category"`
	Kind      places.Kind `json:"kind"`
	Center    geo.Point   `json:"center"`
	RadiusKm  float64     `json:"radius_km"`
	MinRating float64     `json:"min_rating"`
	ClusterID string      `json:"cluster_id,omitempty"` // кластер, ради которого выполняется запрос
}

// Venue сырая запись о месте от провайдера
type Venue struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Types     []string `json:"types"`
	Rating    float64  `json:"rating"`
	Address   string   `json:"address,omitempty"`
	Source    string   `json:"source,omitempty"` // провайдер, вернувший запись
}

// SearchResponse нормализованный ответ поиска
type SearchResponse struct {
	Request    SearchRequest      `json:"request"`
	Candidates []places.Candidate `json:"candidates"`
	Provider   string             `json:"provider"`
	Attempts   int                `json:"attempts"`
	RawCount   int                `json:"raw_count"`
	FromCache  bool               `json:"from_cache"`
	Timestamp  time.Time          `json:"timestamp"`
}

// PlaceProvider интерфейс провайдера поиска мест.
// Определен здесь, чтобы избежать циклических импортов
type PlaceProvider interface {
	// Search выполняет поиск мест вокруг точки
	Search(ctx context.Context, req SearchRequest) ([]Venue, error)

	// GetName возвращает имя провайдера
	GetName() string

	// IsAvailable проверяет доступность провайдера
	IsAvailable() bool

	// GetRateLimit возвращает минимальный интервал между запросами
	GetRateLimit() time.Duration
}

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"

	"retrievalagent/database"
	"retrievalagent/websearch/types"
)

// placesIndexMapping схема индекса мест
const placesIndexMapping = `{
	"settings": {"number_of_shards": 1, "number_of_replicas": 0},
	"mappings": {
		"properties": {
			"place_id": {"type": "keyword"},
			"name":     {"type": "text"},
			"location": {"type": "geo_point"},
			"kind":     {"type": "keyword"},
			"category": {"type": "keyword"},
			"types":    {"type": "keyword"},
			"rating":   {"type": "float"},
			"address":  {"type": "text"}
		}
	}
}`

// ElasticConfig конфигурация провайдера Elasticsearch
type ElasticConfig struct {
	URL      string
	Index    string
	PageSize int
	Logger   *slog.Logger
}

// ElasticProvider провайдер поиска мест в индексе Elasticsearch
type ElasticProvider struct {
	client   *elastic.Client
	index    string
	pageSize int
	logger   *slog.Logger
}

var _ types.PlaceProvider = (*ElasticProvider)(nil)

// elasticPlace документ индекса
type elasticPlace struct {
	PlaceID  string           `json:"place_id"`
	Name     string           `json:"name"`
	Location elastic.GeoPoint `json:"location"`
	Kind     string           `json:"kind"`
	Category string           `json:"category"`
	Types    []string         `json:"types"`
	Rating   float64          `json:"rating"`
	Address  string           `json:"address,omitempty"`
}

// NewElasticProvider создает клиента Elasticsearch.
// Сниффинг и healthcheck отключены: кластер может быть за прокси.
func NewElasticProvider(config ElasticConfig) (*ElasticProvider, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("elasticsearch url is required")
	}
	if config.Index == "" {
		config.Index = "places"
	}
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	client, err := elastic.NewClient(
		elastic.SetURL(config.URL),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticProvider{
		client:   client,
		index:    config.Index,
		pageSize: config.PageSize,
		logger:   config.Logger,
	}, nil
}

// GetName возвращает имя провайдера
func (e *ElasticProvider) GetName() string {
	return "elasticsearch"
}

// IsAvailable проверяет наличие клиента
func (e *ElasticProvider) IsAvailable() bool {
	return e.client != nil
}

// GetRateLimit без ограничений
func (e *ElasticProvider) GetRateLimit() time.Duration {
	return 0
}

// Search ищет места категории в радиусе, ближайшие первыми
func (e *ElasticProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	category := strings.ToLower(strings.TrimSpace(req.Category))

	query := elastic.NewBoolQuery().
		Filter(
			elastic.NewBoolQuery().
				Should(
					elastic.NewTermQuery("category", category),
					elastic.NewTermQuery("types", category),
				).
				MinimumNumberShouldMatch(1),
			elastic.NewGeoDistanceQuery("location").
				Lat(req.Center.Latitude).
				Lon(req.Center.Longitude).
				Distance(fmt.Sprintf("%.3fkm", req.RadiusKm)),
			elastic.NewRangeQuery("rating").Gte(req.MinRating),
		)

	result, err := e.client.Search().
		Index(e.index).
		Query(query).
		SortBy(
			elastic.NewGeoDistanceSort("location").
				Point(req.Center.Latitude, req.Center.Longitude).
				Asc().
				Unit("km").
				DistanceType("arc"),
			elastic.NewFieldSort("place_id").Asc(),
		).
		Size(e.pageSize).
		Do(ctx)
	if err != nil {
		return nil, e.classify(ctx, err)
	}

	venues := make([]types.Venue, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc elasticPlace
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			e.logger.Warn("skipping malformed elasticsearch document", "id", hit.Id, "error", err)
			continue
		}
		if doc.PlaceID == "" {
			doc.PlaceID = hit.Id
		}
		venues = append(venues, types.Venue{
			PlaceID:   doc.PlaceID,
			Name:      doc.Name,
			Latitude:  doc.Location.Lat,
			Longitude: doc.Location.Lon,
			Types:     doc.Types,
			Rating:    doc.Rating,
			Address:   doc.Address,
			Source:    e.GetName(),
		})
	}
	return venues, nil
}

// EnsureIndex создает индекс с маппингом, если его нет
func (e *ElasticProvider) EnsureIndex(ctx context.Context) error {
	exists, err := e.client.IndexExists(e.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", e.index, err)
	}
	if exists {
		e.logger.Info("elasticsearch index already exists", "index", e.index)
		return nil
	}

	created, err := e.client.CreateIndex(e.index).BodyString(placesIndexMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", e.index, err)
	}
	if !created.Acknowledged {
		e.logger.Warn("create index was not acknowledged", "index", e.index)
	}
	e.logger.Info("elasticsearch index created", "index", e.index)
	return nil
}

// IndexPlaces загружает места каталога одним bulk-запросом
func (e *ElasticProvider) IndexPlaces(ctx context.Context, places []database.CatalogPlace) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	bulk := e.client.Bulk().Index(e.index)
	for _, p := range places {
		doc := elasticPlace{
			PlaceID:  p.PlaceID,
			Name:     p.Name,
			Location: elastic.GeoPoint{Lat: p.Latitude, Lon: p.Longitude},
			Kind:     p.Kind,
			Category: p.Category,
			Types:    p.Types,
			Rating:   p.Rating,
			Address:  p.Address,
		}
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Id(p.PlaceID).Doc(doc))
	}

	resp, err := bulk.Refresh("true").Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to execute bulk request: %w", err)
	}

	failed := resp.Failed()
	for _, item := range failed {
		if item.Error != nil {
			e.logger.Warn("failed to index place", "id", item.Id, "reason", item.Error.Reason)
		}
	}
	return len(places) - len(failed), nil
}

// classify переводит ошибку клиента Elasticsearch в класс ошибки источника
func (e *ElasticProvider) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if elastic.IsConnErr(err) || elastic.IsTimeout(err) {
		return types.NewTransientError(e.GetName(), "cluster unreachable", err)
	}

	var esErr *elastic.Error
	if errors.As(err, &esErr) {
		switch {
		case esErr.Status == http.StatusTooManyRequests || esErr.Status >= 500:
			return types.NewTransientError(e.GetName(), "cluster overloaded", err)
		case esErr.Status == http.StatusNotFound:
			return types.NewPermanentError(e.GetName(), "index not found", err)
		default:
			return types.NewPermanentError(e.GetName(), "query rejected", err)
		}
	}
	return types.NewTransientError(e.GetName(), "search failed", err)
}

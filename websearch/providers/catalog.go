package providers

import (
	"context"
	"fmt"
	"time"

	"retrievalagent/database"
	"retrievalagent/websearch/types"
)

// CatalogProvider провайдер поверх офлайн-каталога SQLite
type CatalogProvider struct {
	db    *database.PlacesDB
	limit int
}

var _ types.PlaceProvider = (*CatalogProvider)(nil)

// NewCatalogProvider создает провайдер каталога; limit 0 снимает ограничение
func NewCatalogProvider(db *database.PlacesDB, limit int) *CatalogProvider {
	return &CatalogProvider{db: db, limit: limit}
}

// GetName возвращает имя провайдера
func (c *CatalogProvider) GetName() string {
	return "catalog"
}

// IsAvailable проверяет наличие подключения
func (c *CatalogProvider) IsAvailable() bool {
	return c.db != nil
}

// GetRateLimit без ограничений
func (c *CatalogProvider) GetRateLimit() time.Duration {
	return 0
}

// Search ищет места категории в радиусе.
// Категория, которой нет в каталоге, считается неподдерживаемой.
func (c *CatalogProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	known, err := c.db.HasCategory(ctx, req.Category)
	if err != nil {
		return nil, types.NewTransientError(c.GetName(), "catalog lookup failed", err)
	}
	if !known {
		return nil, types.NewPermanentError(c.GetName(), "unsupported category", fmt.Errorf("%q", req.Category))
	}

	rows, err := c.db.SearchNearby(ctx, database.NearbyQuery{
		Category:  req.Category,
		Center:    req.Center,
		RadiusKm:  req.RadiusKm,
		MinRating: req.MinRating,
		Limit:     c.limit,
	})
	if err != nil {
		return nil, types.NewTransientError(c.GetName(), "catalog query failed", err)
	}

	venues := make([]types.Venue, 0, len(rows))
	for _, r := range rows {
		venues = append(venues, catalogVenue(r, c.GetName()))
	}
	return venues, nil
}

// Details возвращает запись каталога по идентификатору
func (c *CatalogProvider) Details(ctx context.Context, placeID string) (*types.Venue, error) {
	p, err := c.db.GetPlace(ctx, placeID)
	if err != nil {
		return nil, types.NewTransientError(c.GetName(), "catalog lookup failed", err)
	}
	if p == nil {
		return nil, types.NewPermanentError(c.GetName(), "place not found", fmt.Errorf("%q", placeID))
	}
	v := catalogVenue(*p, c.GetName())
	return &v, nil
}

func catalogVenue(p database.CatalogPlace, source string) types.Venue {
	return types.Venue{
		PlaceID:   p.PlaceID,
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Types:     p.Types,
		Rating:    p.Rating,
		Address:   p.Address,
		Source:    source,
	}
}

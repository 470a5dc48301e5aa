package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalagent/database"
	"retrievalagent/geo"
	"retrievalagent/places"
	"retrievalagent/websearch/types"
)

func newTestCatalog(t *testing.T) *database.PlacesDB {
	t.Helper()
	db, err := database.NewPlacesDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.UpsertPlaces(context.Background(), []database.CatalogPlace{
		{PlaceID: "mx", Name: "Maxwell Food Centre", Latitude: 1.2803, Longitude: 103.8448, Kind: "food", Category: "hawker_centre", Types: []string{"hawker_centre"}, Rating: 4.3},
		{PlaceID: "lau", Name: "Lau Pa Sat", Latitude: 1.2806, Longitude: 103.8504, Kind: "food", Category: "hawker_centre", Rating: 4.2},
	})
	require.NoError(t, err)
	return db
}

func TestCatalogProvider_Search(t *testing.T) {
	p := NewCatalogProvider(newTestCatalog(t), 0)

	venues, err := p.Search(context.Background(), types.SearchRequest{
		Category:  "hawker_centre",
		Kind:      places.KindFood,
		Center:    geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm:  5,
		MinRating: 4.0,
	})
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "mx", venues[0].PlaceID)
	assert.Equal(t, "catalog", venues[0].Source)
}

func TestCatalogProvider_UnsupportedCategory(t *testing.T) {
	p := NewCatalogProvider(newTestCatalog(t), 0)

	_, err := p.Search(context.Background(), types.SearchRequest{
		Category: "casino",
		Kind:     places.KindAttraction,
		Center:   geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm: 5,
	})
	assert.True(t, types.IsPermanent(err))
}

func TestCatalogProvider_Details(t *testing.T) {
	p := NewCatalogProvider(newTestCatalog(t), 0)

	v, err := p.Details(context.Background(), "lau")
	require.NoError(t, err)
	assert.Equal(t, "Lau Pa Sat", v.Name)

	_, err = p.Details(context.Background(), "missing")
	assert.True(t, types.IsPermanent(err))
}

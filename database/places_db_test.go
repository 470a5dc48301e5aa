package database

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"retrievalagent/geo"
)

type PlacesDBTestSuite struct {
	suite.Suite
	db  *PlacesDB
	ctx context.Context
}

func (s *PlacesDBTestSuite) SetupTest() {
	db, err := NewPlacesDB(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()

	_, err = s.db.UpsertPlaces(s.ctx, []CatalogPlace{
		{PlaceID: "nm", Name: "National Museum", Latitude: 1.2966, Longitude: 103.8485, Kind: "attraction", Category: "museum", Types: []string{"museum", "tourist_attraction"}, Rating: 4.6},
		{PlaceID: "acm", Name: "Asian Civilisations Museum", Latitude: 1.2875, Longitude: 103.8514, Kind: "attraction", Category: "museum", Types: []string{"museum"}, Rating: 4.6},
		{PlaceID: "zoo", Name: "Singapore Zoo", Latitude: 1.4043, Longitude: 103.7930, Kind: "attraction", Category: "zoo", Types: []string{"zoo", "park"}, Rating: 4.7},
		{PlaceID: "mx", Name: "Maxwell Food Centre", Latitude: 1.2803, Longitude: 103.8448, Kind: "food", Category: "hawker_centre", Types: []string{"hawker_centre", "restaurant"}, Rating: 4.3},
		{PlaceID: "low", Name: "Low Museum", Latitude: 1.2900, Longitude: 103.8500, Kind: "attraction", Category: "museum", Rating: 3.0},
	})
	s.Require().NoError(err)
}

func (s *PlacesDBTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *PlacesDBTestSuite) TestSearchNearby_FiltersAndOrders() {
	got, err := s.db.SearchNearby(s.ctx, NearbyQuery{
		Category:  "museum",
		Center:    geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm:  5,
		MinRating: 4.0,
	})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	// Равный рейтинг, порядок по place_id
	s.Equal("acm", got[0].PlaceID)
	s.Equal("nm", got[1].PlaceID)
	s.Equal([]string{"museum", "tourist_attraction"}, got[1].Types)
}

func (s *PlacesDBTestSuite) TestSearchNearby_MatchesTypes() {
	got, err := s.db.SearchNearby(s.ctx, NearbyQuery{
		Category: "park",
		Center:   geo.Point{Latitude: 1.4043, Longitude: 103.7930},
		RadiusKm: 1,
	})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("zoo", got[0].PlaceID)
}

func (s *PlacesDBTestSuite) TestSearchNearby_RadiusAndLimit() {
	got, err := s.db.SearchNearby(s.ctx, NearbyQuery{
		Category: "zoo",
		Center:   geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm: 5,
	})
	s.Require().NoError(err)
	s.Empty(got)

	got, err = s.db.SearchNearby(s.ctx, NearbyQuery{
		Category: "museum",
		Center:   geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm: 5,
		Limit:    1,
	})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PlacesDBTestSuite) TestSearchNearby_WildcardsAreLiteral() {
	_, err := s.db.UpsertPlaces(s.ctx, []CatalogPlace{
		{PlaceID: "fx", Name: "Lookalike", Latitude: 1.2900, Longitude: 103.8500, Kind: "food", Category: "cafe", Types: []string{"foodxcourt"}, Rating: 4.5},
		{PlaceID: "fc", Name: "Lau Pa Sat", Latitude: 1.2807, Longitude: 103.8504, Kind: "food", Category: "hawker_centre", Types: []string{"food_court"}, Rating: 4.2},
	})
	s.Require().NoError(err)

	got, err := s.db.SearchNearby(s.ctx, NearbyQuery{
		Category: "food_court",
		Center:   geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm: 5,
	})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("fc", got[0].PlaceID)

	got, err = s.db.SearchNearby(s.ctx, NearbyQuery{
		Category: "%",
		Center:   geo.Point{Latitude: 1.2897, Longitude: 103.8501},
		RadiusKm: 5,
	})
	s.Require().NoError(err)
	s.Empty(got)

	ok, err := s.db.HasCategory(s.ctx, "food_cour_")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PlacesDBTestSuite) TestUpsertOverwrites() {
	_, err := s.db.UpsertPlaces(s.ctx, []CatalogPlace{
		{PlaceID: "mx", Name: "Maxwell", Latitude: 1.2803, Longitude: 103.8448, Kind: "food", Category: "hawker_centre", Rating: 4.4},
		{PlaceID: "", Name: "skipped"},
	})
	s.Require().NoError(err)

	p, err := s.db.GetPlace(s.ctx, "mx")
	s.Require().NoError(err)
	s.Require().NotNil(p)
	s.Equal("Maxwell", p.Name)
	s.Equal(4.4, p.Rating)
	s.Equal([]string{}, p.Types)

	missing, err := s.db.GetPlace(s.ctx, "nope")
	s.NoError(err)
	s.Nil(missing)

	n, err := s.db.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, n)
}

func (s *PlacesDBTestSuite) TestCategories() {
	cats, err := s.db.Categories(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"hawker_centre", "museum", "zoo"}, cats)

	ok, err := s.db.HasCategory(s.ctx, "Restaurant")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.db.HasCategory(s.ctx, "casino")
	s.Require().NoError(err)
	s.False(ok)
}

func TestPlacesDBTestSuite(t *testing.T) {
	suite.Run(t, new(PlacesDBTestSuite))
}

func TestCatalogCSV_RoundTrip(t *testing.T) {
	input := `place_id,name,latitude,longitude,kind,category,types,rating,address
nm,National Museum,1.2966,103.8485,attraction,Museum,museum;Tourist_Attraction,4.6,93 Stamford Rd
mx,"Maxwell Food Centre, Tanjong Pagar",1.2803,103.8448,food,hawker_centre,,4.3,
`
	places, err := ReadCatalogCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "museum", places[0].Category)
	assert.Equal(t, []string{"museum", "tourist_attraction"}, places[0].Types)
	assert.Equal(t, "Maxwell Food Centre, Tanjong Pagar", places[1].Name)
	assert.Nil(t, places[1].Types)

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogCSV(&buf, places))

	again, err := ReadCatalogCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, places, again)
}

func TestReadCatalogCSV_Errors(t *testing.T) {
	_, err := ReadCatalogCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCatalogCSV(strings.NewReader("place_id,name\n"))
	assert.ErrorContains(t, err, "missing column")

	places, err := ReadCatalogCSV(strings.NewReader(
		"place_id,name,latitude,longitude,kind,category\n" +
			"a,A,1.3,103.8,food,cafe\n" +
			"b,B,north,103.8,food,cafe\n"))
	assert.ErrorContains(t, err, "line 3")
	assert.Len(t, places, 1)
}

func TestGenerateCatalog(t *testing.T) {
	partition := geo.SingaporePartition()
	config := SeedConfig{
		Seed:             11,
		PlacesPerCluster: 6,
		Categories: map[string][]string{
			"attraction": {"museum", "park"},
			"food":       {"hawker_centre"},
		},
	}

	first, err := GenerateCatalog(partition, config)
	require.NoError(t, err)
	second, err := GenerateCatalog(partition, config)
	require.NoError(t, err)

	assert.Len(t, first, 42)
	assert.Equal(t, first, second)

	for _, p := range first {
		cluster, ok := partition.Get(strings.TrimPrefix(p.PlaceID[:len(p.PlaceID)-4], "seed-"))
		require.True(t, ok, p.PlaceID)
		d := geo.HaversineKm(cluster.Centroid, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude})
		assert.LessOrEqual(t, d, cluster.RadiusKm+0.01)
		assert.GreaterOrEqual(t, p.Rating, 3.0)
		assert.LessOrEqual(t, p.Rating, 5.0)
	}

	_, err = GenerateCatalog(partition, SeedConfig{PlacesPerCluster: 1})
	assert.Error(t, err)
}

package geo

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartition_Validation(t *testing.T) {
	tests := []struct {
		name     string
		clusters []Cluster
		wantErr  bool
	}{
		{"empty", nil, true},
		{"empty id", []Cluster{{ID: "", Centroid: Point{1, 103}, RadiusKm: 1}}, true},
		{"duplicate id", []Cluster{
			{ID: "a", Centroid: Point{1, 103}, RadiusKm: 1},
			{ID: "a", Centroid: Point{1.1, 103}, RadiusKm: 1},
		}, true},
		{"bad centroid", []Cluster{{ID: "a", Centroid: Point{100, 103}, RadiusKm: 1}}, true},
		{"zero radius", []Cluster{{ID: "a", Centroid: Point{1, 103}}}, true},
		{"valid", []Cluster{{ID: "a", Centroid: Point{1, 103}, RadiusKm: 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPartition(tt.clusters)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPartition_OrderedByID(t *testing.T) {
	p, err := NewPartition([]Cluster{
		{ID: "b", Centroid: Point{1, 103}, RadiusKm: 1},
		{ID: "a", Centroid: Point{2, 103}, RadiusKm: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.IDs())

	c, ok := p.Get("b")
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Centroid.Latitude)
}

func TestPartition_NearestTieGoesToLowestID(t *testing.T) {
	// Точка ровно посередине между двумя центроидами
	p, err := NewPartition([]Cluster{
		{ID: "z", Centroid: Point{Latitude: 0, Longitude: 1}, RadiusKm: 1},
		{ID: "m", Centroid: Point{Latitude: 0, Longitude: -1}, RadiusKm: 1},
	})
	require.NoError(t, err)

	got := p.Nearest(Point{Latitude: 0, Longitude: 0})
	assert.Equal(t, "m", got.ID)
}

func TestPartition_NearestMatchesBruteForce(t *testing.T) {
	p := SingaporePartition()
	faker := gofakeit.New(42)

	for i := 0; i < 500; i++ {
		pt := Point{
			Latitude:  faker.Float64Range(1.20, 1.47),
			Longitude: faker.Float64Range(103.60, 104.05),
		}
		got := p.Nearest(pt)

		bestID := ""
		bestDist := 0.0
		for _, c := range p.Clusters() {
			d := HaversineKm(pt, c.Centroid)
			if bestID == "" || d < bestDist || (d == bestDist && c.ID < bestID) {
				bestID, bestDist = c.ID, d
			}
		}
		require.Equal(t, bestID, got.ID, "point %+v", pt)
	}
}

func TestHaversineKm(t *testing.T) {
	// Marina Bay Sands -> Gardens by the Bay ~ 0.4 km
	d := HaversineKm(Point{1.2834, 103.8607}, Point{1.2816, 103.8636})
	assert.InDelta(t, 0.38, d, 0.05)

	assert.Zero(t, HaversineKm(Point{1.3, 103.8}, Point{1.3, 103.8}))
}

func TestSingaporePartition(t *testing.T) {
	p := SingaporePartition()
	assert.Equal(t, 7, p.Len())

	// Центроид каждого кластера относится к самому кластеру
	for _, c := range p.Clusters() {
		assert.Equal(t, c.ID, p.Nearest(c.Centroid).ID)
	}

	// Копия не влияет на разбиение
	clusters := p.Clusters()
	clusters[0].ID = "mutated"
	assert.NotEqual(t, "mutated", p.Clusters()[0].ID)
}

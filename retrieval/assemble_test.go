package retrieval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalagent/geo"
	"retrievalagent/places"
)

func TestAssemble_Projection(t *testing.T) {
	candidates := []places.Candidate{
		{
			PlaceID:        "gardens",
			Name:           "Gardens by the Bay",
			Location:       geo.Point{Latitude: 1.2816, Longitude: 103.8636},
			ClusterID:      "c1_central",
			Kind:           places.KindAttraction,
			Tags:           []string{"attraction", "park"},
			Rating:         4.7,
			OnsiteCO2Kg:    0.1,
			LowCarbonScore: 95,
		},
		{PlaceID: "bare", Name: "No Tags", ClusterID: "c3_east"},
	}

	doc := Assemble(candidates)
	out := doc.Retrieval.PlacesMatrix.Candidates
	require.Len(t, out, 2)
	assert.Equal(t, "c1_central", out[0].GeoClusterID)
	assert.Equal(t, 95, out[0].LowCarbonScore)
	assert.NotNil(t, out[1].Tags)

	candidates[0].Tags[1] = "mutated"
	assert.Equal(t, "park", out[0].Tags[1])

	data, err := doc.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), `"tags": []`)
	assert.NotContains(t, string(data), "rating")

	var decoded map[string]map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	first := decoded["retrieval"]["places_matrix"]["candidates"][0]
	assert.Equal(t, map[string]any{"latitude": 1.2816, "longitude": 103.8636}, first["geo"])
	assert.Equal(t, 0.1, first["onsite_co2_kg"])
}

func TestAssemble_Empty(t *testing.T) {
	data, err := Assemble(nil).Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"retrieval\": {\n    \"places_matrix\": {\n      \"candidates\": []\n    }\n  }\n}\n", string(data))
}

func TestDocument_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	doc := Assemble([]places.Candidate{{PlaceID: "x", Name: "X", Tags: []string{"food"}}})
	require.NoError(t, doc.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want, _ := doc.Marshal()
	assert.Equal(t, want, data)

	assert.Error(t, doc.WriteFile(filepath.Join(t.TempDir(), "missing", "out.json")))
}

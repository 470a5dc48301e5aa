package carbon

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalagent/places"
)

func TestScorer_FirstTagWithEntryWins(t *testing.T) {
	s := DefaultScorer()

	scored := s.Score(places.Candidate{PlaceID: "p", Tags: []string{"attraction", "unknown_type", "park", "museum"}})
	assert.Equal(t, 0.1, scored.OnsiteCO2Kg)
	assert.Equal(t, 95, scored.LowCarbonScore)
	assert.True(t, scored.Scored)
}

func TestScorer_UnknownGetsDefault(t *testing.T) {
	s := DefaultScorer()

	scored := s.Score(places.Candidate{PlaceID: "p", Tags: []string{"food", "space_elevator"}})
	assert.Equal(t, DefaultEntry.OnsiteCO2Kg, scored.OnsiteCO2Kg)
	assert.Equal(t, DefaultEntry.LowCarbonScore, scored.LowCarbonScore)

	scored = s.Score(places.Candidate{PlaceID: "q"})
	assert.Equal(t, 50, scored.LowCarbonScore)
}

func TestScorer_DoesNotRescore(t *testing.T) {
	s := DefaultScorer()
	original := places.Candidate{PlaceID: "p", Tags: []string{"park"}}

	scored := s.Score(original)
	scored.Tags = []string{"shopping_mall"}
	again := s.Score(scored)

	assert.Equal(t, 95, again.LowCarbonScore)
	assert.False(t, original.Scored)
	assert.Equal(t, []string{"park"}, original.Tags)
}

func TestNewScorer_Overrides(t *testing.T) {
	s, err := NewScorer(map[string]Entry{
		"Park":      {OnsiteCO2Kg: 0.05, LowCarbonScore: 140},
		"bike_tour": {OnsiteCO2Kg: 0, LowCarbonScore: -5},
	})
	require.NoError(t, err)

	assert.Equal(t, 100, s.Score(places.Candidate{Tags: []string{"park"}}).LowCarbonScore)
	assert.Equal(t, 0, s.Score(places.Candidate{Tags: []string{"bike_tour"}}).LowCarbonScore)

	_, err = NewScorer(map[string]Entry{"food": {OnsiteCO2Kg: 1}})
	assert.Error(t, err)
	_, err = NewScorer(map[string]Entry{"x": {OnsiteCO2Kg: -1}})
	assert.Error(t, err)
}

func TestScorer_ScoresAlwaysInRange(t *testing.T) {
	faker := gofakeit.New(7)
	tags := make([]string, 0, len(defaultTable)+2)
	for tag := range defaultTable {
		tags = append(tags, tag)
	}
	tags = append(tags, "attraction", "food", "unlisted")

	s := DefaultScorer()
	candidates := make([]places.Candidate, 200)
	for i := range candidates {
		n := faker.Number(0, 4)
		for j := 0; j < n; j++ {
			candidates[i].Tags = append(candidates[i].Tags, tags[faker.Number(0, len(tags)-1)])
		}
	}

	for _, c := range s.ScoreAll(candidates) {
		assert.GreaterOrEqual(t, c.LowCarbonScore, 0)
		assert.LessOrEqual(t, c.LowCarbonScore, 100)
		assert.GreaterOrEqual(t, c.OnsiteCO2Kg, 0.0)
	}
}

func TestDefaultTableHasNoKindTags(t *testing.T) {
	for tag := range reservedTags {
		_, ok := defaultTable[tag]
		assert.False(t, ok, tag)
	}
}

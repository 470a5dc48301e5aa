package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalagent/geo"
	"retrievalagent/interests"
	"retrievalagent/places"
	"retrievalagent/quality"
)

func TestFinalize_RankingAndBalance(t *testing.T) {
	partition := geo.SingaporePartition()
	central, _ := partition.Get("c1_central")
	orchard, _ := partition.Get("c2_orchard")

	plan := interests.BuildPlan(nil, []string{"museums"}, []string{"shopping"}, nil, nil)
	r := &run{
		store:     places.NewStore(partition),
		evaluator: quality.NewEvaluator(quality.DefaultConfig(), plan),
		targets:   quality.Targets{places.KindAttraction: 5, places.KindFood: 0},
	}

	attraction := func(id string, cluster geo.Cluster, tag string, rating float64) places.Candidate {
		return places.Candidate{
			PlaceID:  id,
			Name:     id,
			Location: cluster.Centroid,
			Kind:     places.KindAttraction,
			Tags:     []string{"attraction", tag},
			Rating:   rating,
		}
	}
	r.store.Ingest([]places.Candidate{
		attraction("m2", central, "museum", 4.8),
		attraction("m3", orchard, "museum", 4.1),
		attraction("m1", central, "museum", 4.0),
		attraction("a-park", orchard, "park", 4.5),
		attraction("p2", orchard, "park", 4.5),
		attraction("p1", central, "park", 5.0),
		attraction("s1", central, "shopping_mall", 4.9),
	})

	selected := r.finalize()

	var ids []string
	for _, c := range selected {
		ids = append(ids, c.PlaceID)
	}
	assert.Equal(t, []string{"m2", "m3", "m1", "a-park", "p1"}, ids)
}

func TestFinalize_FewerCandidatesThanTarget(t *testing.T) {
	partition := geo.SingaporePartition()
	central, _ := partition.Get("c1_central")

	r := &run{
		store:     places.NewStore(partition),
		evaluator: quality.NewEvaluator(quality.DefaultConfig(), interests.Plan{}),
		targets:   quality.Targets{places.KindAttraction: 3, places.KindFood: 2},
	}
	r.store.Ingest([]places.Candidate{
		{PlaceID: "f1", Location: central.Centroid, Kind: places.KindFood, Tags: []string{"food"}, Rating: 4.6},
		{PlaceID: "a1", Location: central.Centroid, Kind: places.KindAttraction, Tags: []string{"attraction"}, Rating: 4.1},
	})

	selected := r.finalize()
	require.Len(t, selected, 2)
	assert.Equal(t, places.KindAttraction, selected[0].Kind, "attractions come first")
	assert.Equal(t, "f1", selected[1].PlaceID)
}

func TestFinalize_EmptyStore(t *testing.T) {
	r := &run{
		store:     places.NewStore(geo.SingaporePartition()),
		evaluator: quality.NewEvaluator(quality.DefaultConfig(), interests.Plan{}),
		targets:   quality.Targets{places.KindAttraction: 3},
	}
	selected := r.finalize()
	assert.NotNil(t, selected)
	assert.Empty(t, selected)
}

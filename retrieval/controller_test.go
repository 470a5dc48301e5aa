package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalagent/enrichment"
	"retrievalagent/geo"
	"retrievalagent/places"
	"retrievalagent/quality"
	"retrievalagent/requirements"
	"retrievalagent/websearch/providers"
	"retrievalagent/websearch/types"
)

// sleepRecorder записывает задержки вместо реального ожидания
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *sleepRecorder) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.delays {
		total += d
	}
	return total
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(t *testing.T, p types.PlaceProvider, mutate func(*Options)) *Controller {
	t.Helper()
	opts := Options{
		Provider: p,
		Sleep:    (&sleepRecorder{}).Sleep,
		Logger:   quietLogger(),
		NewRunID: func() string { return "run-test" },
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewController(opts)
	require.NoError(t, err)
	return c
}

// moderateTrip 5 дней в умеренном темпе: 10 достопримечательностей и 5 заведений
func moderateTrip() *requirements.Requirement {
	return &requirements.Requirement{
		DestinationCity: "Singapore",
		DurationDays:    5,
		Pace:            requirements.PaceModerate,
		Budget:          "medium",
	}
}

func centroid(t *testing.T, id string) geo.Point {
	t.Helper()
	c, ok := geo.SingaporePartition().Get(id)
	require.True(t, ok)
	return c.Centroid
}

func venueAt(id string, p geo.Point, rating float64, venueTypes ...string) types.Venue {
	return types.Venue{PlaceID: id, Name: "Venue " + id, Latitude: p.Latitude, Longitude: p.Longitude, Types: venueTypes, Rating: rating}
}

func relaxationKinds(history []Iteration) []RelaxationKind {
	var out []RelaxationKind
	for _, it := range history {
		if it.Relaxation != nil {
			out = append(out, it.Relaxation.Kind)
		}
	}
	return out
}

func TestRun_ScenarioA_ClusterRetargetingBeforeRadius(t *testing.T) {
	c1, c2 := centroid(t, "c1_central"), centroid(t, "c2_orchard")
	var venues []types.Venue
	for i := 0; i < 8; i++ {
		venues = append(venues, venueAt(string(rune('a'+i))+"-central", geo.Point{Latitude: c1.Latitude + float64(i)*0.001, Longitude: c1.Longitude}, 4.5, "tourist_attraction"))
	}
	for i := 0; i < 7; i++ {
		venues = append(venues, venueAt(string(rune('a'+i))+"-orchard", geo.Point{Latitude: c2.Latitude + float64(i)*0.001, Longitude: c2.Longitude}, 4.5, "tourist_attraction"))
	}

	p := providers.NewScriptedProvider("scripted").Default(func(req types.SearchRequest) ([]types.Venue, error) {
		if req.Kind == places.KindAttraction {
			return venues, nil
		}
		return nil, nil
	})

	result, err := newController(t, p, nil).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	require.NotEmpty(t, result.History)
	first := result.History[0]
	require.NotNil(t, first.Relaxation)
	assert.Equal(t, RelaxRetargetCluster, first.Relaxation.Kind)
	assert.Equal(t, "c3_east", first.Relaxation.ClusterID, "largest deficit, then lowest id")
	assert.Equal(t, []places.Kind{places.KindAttraction, places.KindFood}, first.Relaxation.Kinds)
	assert.Equal(t, 15.0, first.Relaxation.RadiusKm)
	assert.Equal(t, 15, first.CandidatesAdded)

	assert.NotContains(t, relaxationKinds(result.History), RelaxExpandRadius)
	var clusters []string
	for _, it := range result.History {
		if it.Relaxation != nil {
			clusters = append(clusters, it.Relaxation.ClusterID)
		}
	}
	assert.Equal(t, []string{"c3_east", "c4_north_east", "c5_north", "c6_west", "c7_south"}, clusters)

	assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)
	assert.Len(t, result.History, 6)
	assert.Equal(t, 15, result.StoreSize)
	assert.Len(t, result.Candidates, 10)

	perCluster := map[string]int{}
	for _, c := range result.Candidates {
		perCluster[c.ClusterID]++
	}
	assert.Equal(t, map[string]int{"c1_central": 5, "c2_orchard": 5}, perCluster)
}

func TestRun_ScenarioB_TransientErrorsThenSuccess(t *testing.T) {
	transient := types.NewTransientError("scripted", "rate limited", errors.New("429"))
	p := providers.NewScriptedProvider("scripted").On("museum", "c1_central",
		providers.ScriptStep{Err: transient},
		providers.ScriptStep{Err: transient},
		providers.ScriptStep{Venues: []types.Venue{venueAt("national-museum", centroid(t, "c1_central"), 4.6, "museum")}},
	)
	sleeper := &sleepRecorder{}

	result, err := newController(t, p, func(o *Options) { o.Sleep = sleeper.Sleep }).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "national-museum", result.Candidates[0].PlaceID)
	assert.Equal(t, 1500*time.Millisecond, sleeper.Total())
	assert.GreaterOrEqual(t, p.Calls("museum", "c1_central"), 3)

	var outcome *QueryOutcome
	for i, q := range result.History[0].Queries {
		if q.Category == "museum" && q.ClusterID == "c1_central" {
			outcome = &result.History[0].Queries[i]
		}
	}
	require.NotNil(t, outcome)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, 1, outcome.Added)
}

func TestRun_ScenarioC_EmptySourceReachesCeiling(t *testing.T) {
	p := providers.NewScriptedProvider("scripted")

	result, err := newController(t, p, nil).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)
	assert.Len(t, result.History, DefaultConfig().MaxIterations)
	assert.Empty(t, result.Candidates)
	assert.Nil(t, result.History[len(result.History)-1].Relaxation)

	data, err := Assemble(result.Candidates).Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"retrieval":{"places_matrix":{"candidates":[]}}}`, string(data))
}

func TestRun_ScenarioC_TransientFailuresAreRecorded(t *testing.T) {
	p := providers.NewScriptedProvider("scripted").Default(func(types.SearchRequest) ([]types.Venue, error) {
		return nil, types.NewTransientError("scripted", "timeout", errors.New("deadline exceeded"))
	})

	result, err := newController(t, p, func(o *Options) { o.Config.MaxIterations = 2 }).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	require.Len(t, result.History, 2)
	first := result.History[0]
	assert.Equal(t, len(first.Queries), first.Failures)
	for _, q := range first.Queries {
		assert.True(t, q.Failed())
		assert.True(t, q.Transient)
		assert.Equal(t, 4, q.Attempts)
		assert.Contains(t, q.Error, types.ErrRetriesExhausted.Error())
	}
	assert.Empty(t, result.Candidates)
}

func TestRun_ScenarioD_DuplicatePlaceAcrossCalls(t *testing.T) {
	c1 := centroid(t, "c1_central")
	p := providers.NewScriptedProvider("scripted").
		On("museum", "c1_central", providers.ScriptStep{Venues: []types.Venue{
			{PlaceID: "dup", Name: "First", Latitude: c1.Latitude, Longitude: c1.Longitude, Types: []string{"museum"}, Rating: 4.2},
		}}).
		On("park", "c1_central", providers.ScriptStep{Venues: []types.Venue{
			{PlaceID: "dup", Name: "Second", Latitude: c1.Latitude, Longitude: c1.Longitude, Types: []string{"park"}, Rating: 4.9},
		}})

	result, err := newController(t, p, func(o *Options) { o.Config.MaxIterations = 1 }).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	added := map[string]int{}
	returned := map[string]int{}
	for _, q := range result.History[0].Queries {
		if q.ClusterID == "c1_central" {
			added[q.Category] = q.Added
			returned[q.Category] = q.Returned
		}
	}
	assert.Equal(t, 1, added["museum"])
	assert.Equal(t, 0, added["park"])
	assert.Equal(t, 1, returned["park"])

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "First", result.Candidates[0].Name)
	assert.Equal(t, 4.2, result.Candidates[0].Rating)
	assert.Equal(t, []string{"attraction", "museum"}, result.Candidates[0].Tags)
}

func TestRun_RelaxationsAreMonotonic(t *testing.T) {
	p := providers.NewScriptedProvider("scripted")
	ctrl := newController(t, p, func(o *Options) {
		o.Config.MaxIterations = 20
		o.Config.ClusterRadiiKm = []float64{5, 15}
	})

	result, err := ctrl.Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	want := []RelaxationKind{
		RelaxRetargetCluster, RelaxRetargetCluster, RelaxRetargetCluster, RelaxRetargetCluster,
		RelaxRetargetCluster, RelaxRetargetCluster, RelaxRetargetCluster,
		RelaxExpandRadius, RelaxExpandRadius, RelaxExpandRadius,
		RelaxLowerThreshold, RelaxLowerThreshold,
	}
	assert.Equal(t, want, relaxationKinds(result.History))
	require.Len(t, result.History, 13, "finalizes when nothing is left to relax")
	assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)

	last := result.History[12]
	assert.Equal(t, 35.0, last.RadiusKm)
	assert.Equal(t, 3.0, last.Thresholds[places.KindAttraction])
	assert.Equal(t, 3.5, last.Thresholds[places.KindFood])

	for i := 1; i < len(result.History); i++ {
		prev, cur := result.History[i-1], result.History[i]
		assert.GreaterOrEqual(t, cur.RadiusKm, prev.RadiusKm)
		for _, kind := range places.Kinds() {
			assert.LessOrEqual(t, cur.Thresholds[kind], prev.Thresholds[kind])
		}
		for id, r := range prev.ClusterRadiiKm {
			require.Contains(t, cur.ClusterRadiiKm, id)
			assert.GreaterOrEqual(t, cur.ClusterRadiiKm[id], r)
		}
		assert.Equal(t, prev.Number+1, cur.Number)
	}
}

func TestRun_TerminatesWithinCeiling(t *testing.T) {
	for _, max := range []int{1, 2, 4, 6} {
		p := providers.NewScriptedProvider("scripted")
		result, err := newController(t, p, func(o *Options) { o.Config.MaxIterations = max }).Run(context.Background(), moderateTrip())
		require.NoError(t, err)
		assert.LessOrEqual(t, len(result.History), max)
		assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)
	}
}

func TestRun_NothingToRelaxFinalizesEarly(t *testing.T) {
	p := providers.NewScriptedProvider("scripted")
	ctrl := newController(t, p, func(o *Options) {
		o.Config.GlobalRadiiKm = []float64{10}
		o.Config.ClusterRadiiKm = []float64{5}
		o.Config.InitialThresholds = map[places.Kind]float64{places.KindAttraction: 4, places.KindFood: 4.5}
		o.Config.ThresholdFloors = map[places.Kind]float64{places.KindAttraction: 4, places.KindFood: 4.5}
	})

	result, err := ctrl.Run(context.Background(), moderateTrip())
	require.NoError(t, err)
	assert.Len(t, result.History, 1)
	assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)
}

func TestRun_SuccessStopsEarly(t *testing.T) {
	partition := geo.SingaporePartition()
	p := providers.NewScriptedProvider("scripted").Default(func(req types.SearchRequest) ([]types.Venue, error) {
		// По одному месту на категорию у центроида запрошенного кластера
		id := req.ClusterID + "-" + req.Category
		return []types.Venue{venueAt(id, req.Center, 4.8, req.Category)}, nil
	})

	trip := &requirements.Requirement{DurationDays: 2, Pace: requirements.PaceRelaxed}
	result, err := newController(t, p, func(o *Options) { o.Partition = partition }).Run(context.Background(), trip)
	require.NoError(t, err)

	assert.Equal(t, quality.DecisionSuccess, result.Decision)
	assert.Len(t, result.History, 1)
	assert.Nil(t, result.History[0].Relaxation)
	assert.Len(t, result.Candidates, 4, "two attractions and two food places")
}

func TestRun_AdvisorHintIsUsedWhenValid(t *testing.T) {
	p := providers.NewScriptedProvider("scripted")
	anchor := geo.Point{Latitude: 1.2834, Longitude: 103.8607}
	var (
		calls   int32
		advised string
	)
	advisor := AdvisorFunc(func(ctx context.Context, req AdviceRequest) (int, error) {
		atomic.AddInt32(&calls, 1)
		for _, o := range req.Options {
			assert.Equal(t, req.Options[0].Kind, o.Kind, "options outside the highest tier")
		}
		assert.Equal(t, &anchor, req.Anchor)
		switch req.Iteration {
		case 1:
			last := len(req.Options) - 1
			advised = req.Options[last].ClusterID
			return last, nil
		case 2:
			return 99, nil
		}
		return -1, errors.New("model unavailable")
	})

	result, err := newController(t, p, func(o *Options) { o.Advisor = advisor }).Run(context.Background(), moderateTrip().WithAnchor(anchor))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(result.History), 3)
	first := result.History[0].Relaxation
	assert.Equal(t, RelaxRetargetCluster, first.Kind)
	assert.Equal(t, SourceAdvisor, first.Source)
	assert.Equal(t, advised, first.ClusterID)
	assert.Equal(t, 15.0, first.RadiusKm)

	assert.Equal(t, 10.0, result.History[1].RadiusKm, "global radius is not expanded while clusters can be retargeted")
	assert.Equal(t, SourceDeterministic, result.History[1].Relaxation.Source)
	assert.Equal(t, RelaxRetargetCluster, result.History[1].Relaxation.Kind)
	assert.NotEqual(t, advised, result.History[1].Relaxation.ClusterID)
	assert.Equal(t, SourceDeterministic, result.History[2].Relaxation.Source)
	assert.Greater(t, atomic.LoadInt32(&calls), int32(2))
}

func TestRun_AdvisorNotAskedForSingleOption(t *testing.T) {
	var calls int32
	advisor := AdvisorFunc(func(ctx context.Context, req AdviceRequest) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	})
	partition, err := geo.NewPartition([]geo.Cluster{{ID: "only", Name: "Only", Centroid: geo.Point{Latitude: 1.3, Longitude: 103.8}, RadiusKm: 5}})
	require.NoError(t, err)

	result, err := newController(t, providers.NewScriptedProvider("scripted"), func(o *Options) {
		o.Advisor = advisor
		o.Partition = partition
		o.Config.MaxIterations = 2
	}).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	require.NotNil(t, result.History[0].Relaxation)
	assert.Equal(t, RelaxRetargetCluster, result.History[0].Relaxation.Kind)
	assert.Equal(t, SourceDeterministic, result.History[0].Relaxation.Source)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestHighestTier(t *testing.T) {
	options := []Relaxation{
		{Kind: RelaxRetargetCluster, ClusterID: "a"},
		{Kind: RelaxRetargetCluster, ClusterID: "b"},
		{Kind: RelaxExpandRadius, RadiusKm: 20},
		{Kind: RelaxLowerThreshold},
	}
	assert.Equal(t, options[:2], highestTier(options))
	assert.Equal(t, options[2:3], highestTier(options[2:]))
	assert.Equal(t, options[3:], highestTier(options[3:]))
}

func TestRun_CancelledContextFinalizes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newController(t, providers.NewScriptedProvider("scripted"), nil).Run(ctx, moderateTrip())
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Len(t, result.History, 1)
	assert.Equal(t, quality.DecisionBudgetExhausted, result.Decision)
}

// countingProvider считает одновременные вызовы
type countingProvider struct {
	inFlight int32
	maxSeen  int32
}

func (p *countingProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&p.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&p.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return nil, nil
}

func (p *countingProvider) GetName() string             { return "counting" }
func (p *countingProvider) IsAvailable() bool           { return true }
func (p *countingProvider) GetRateLimit() time.Duration { return 0 }

func TestRun_BoundedConcurrency(t *testing.T) {
	p := &countingProvider{}
	_, err := newController(t, p, func(o *Options) { o.Config.MaxIterations = 1 }).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	maxSeen := atomic.LoadInt32(&p.maxSeen)
	assert.Greater(t, maxSeen, int32(0))
	assert.LessOrEqual(t, maxSeen, int32(DefaultConfig().MaxConcurrency))
}

// generatedSource детерминированный источник: ответ зависит только от запроса
func generatedSource(pool []types.Venue) func(req types.SearchRequest) ([]types.Venue, error) {
	return func(req types.SearchRequest) ([]types.Venue, error) {
		h := fnv.New64a()
		h.Write([]byte(req.Category + "|" + req.ClusterID))
		faker := gofakeit.New(int64(h.Sum64() >> 1))

		n := faker.Number(2, 8)
		out := make([]types.Venue, 0, n)
		for i := 0; i < n; i++ {
			v := pool[faker.Number(0, len(pool)-1)]
			v.Types = []string{req.Category}
			if faker.Bool() {
				v.Types = append([]string{"point_of_interest"}, v.Types...)
			}
			out = append(out, v)
		}
		if faker.Number(0, 9) == 0 {
			return nil, types.NewPermanentError("generated", "unsupported category", nil)
		}
		return out, nil
	}
}

func venuePool(n int) []types.Venue {
	faker := gofakeit.New(1)
	pool := make([]types.Venue, n)
	for i := range pool {
		pool[i] = types.Venue{
			PlaceID:   faker.UUID(),
			Name:      faker.Company(),
			Latitude:  faker.Float64Range(1.24, 1.42),
			Longitude: faker.Float64Range(103.70, 103.95),
			Rating:    float64(faker.Number(30, 50)) / 10,
		}
	}
	return pool
}

func TestRun_DeterministicOutput(t *testing.T) {
	pool := venuePool(80)
	trip := moderateTrip()
	trip.Interests = []string{"museums", "nature"}
	trip.DietaryPreferences = []string{"halal"}

	run := func() ([]byte, *Result) {
		p := providers.NewScriptedProvider("generated").Default(generatedSource(pool))
		result, err := newController(t, p, nil).Run(context.Background(), trip)
		require.NoError(t, err)
		data, err := Assemble(result.Candidates).Marshal()
		require.NoError(t, err)
		return data, result
	}

	first, result := run()
	second, _ := run()
	assert.Equal(t, string(first), string(second))

	partition := geo.SingaporePartition()
	seen := map[string]struct{}{}
	perKind := map[places.Kind]int{}
	for _, c := range result.Candidates {
		_, dup := seen[c.PlaceID]
		assert.False(t, dup, "duplicate place id %s", c.PlaceID)
		seen[c.PlaceID] = struct{}{}
		assert.Equal(t, partition.Nearest(c.Location).ID, c.ClusterID)
		assert.GreaterOrEqual(t, c.LowCarbonScore, 0)
		assert.LessOrEqual(t, c.LowCarbonScore, 100)
		assert.NotNil(t, c.Tags)
		perKind[c.Kind]++
	}
	for kind, n := range perKind {
		assert.LessOrEqual(t, n, result.Targets[kind])
	}
}

type staticDetails struct{}

func (staticDetails) Details(ctx context.Context, placeID string) (*types.Venue, error) {
	return &types.Venue{PlaceID: placeID, Name: "Filled In", Types: []string{"park"}}, nil
}

func (staticDetails) GetName() string { return "static" }

func TestRun_EnrichesAndScoresFinalists(t *testing.T) {
	c1 := centroid(t, "c1_central")
	p := providers.NewScriptedProvider("scripted").On("tourist_attraction", "c1_central", providers.ScriptStep{
		Venues: []types.Venue{{PlaceID: "nameless", Latitude: c1.Latitude, Longitude: c1.Longitude, Rating: 4.4}},
	})
	enricher := enrichment.NewEnricher([]enrichment.DetailsProvider{staticDetails{}}, nil, quietLogger())

	result, err := newController(t, p, func(o *Options) {
		o.Enricher = enricher
		o.Config.MaxIterations = 1
	}).Run(context.Background(), moderateTrip())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, "Filled In", c.Name)
	assert.Equal(t, []string{"attraction", "tourist_attraction", "park"}, c.Tags)
	assert.Equal(t, 60, c.LowCarbonScore)
	assert.True(t, c.Scored)
}

func TestNewController_Errors(t *testing.T) {
	_, err := NewController(Options{})
	assert.Error(t, err)

	_, err = NewController(Options{
		Provider: providers.NewScriptedProvider("x"),
		Config:   Config{GlobalRadiiKm: []float64{20, 10}},
	})
	assert.ErrorContains(t, err, "global_radii_km must be strictly increasing")

	ctrl := newController(t, providers.NewScriptedProvider("x"), nil)
	_, err = ctrl.Run(context.Background(), nil)
	assert.Error(t, err)
}

package websearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retrievalagent/websearch/types"
)

// mockProvider мок провайдера для тестирования
type mockProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name string, available bool) *mockProvider {
	m := &mockProvider{name: name}
	m.On("IsAvailable").Return(available).Maybe()
	return m
}

func (m *mockProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	args := m.Called(ctx, req)
	venues, _ := args.Get(0).([]types.Venue)
	return venues, args.Error(1)
}

func (m *mockProvider) GetName() string { return m.name }

func (m *mockProvider) IsAvailable() bool { return m.Called().Bool(0) }

func (m *mockProvider) GetRateLimit() time.Duration { return 0 }

func TestProviderRouter_FallsBackInPriorityOrder(t *testing.T) {
	primary := newMockProvider("google", true)
	secondary := newMockProvider("catalog", true)

	primary.On("Search", mock.Anything, mock.Anything).
		Return(nil, types.NewTransientError("google", "quota", nil)).Once()
	secondary.On("Search", mock.Anything, mock.Anything).
		Return([]types.Venue{{PlaceID: "p1"}}, nil).Once()

	rm := NewReliabilityManager()
	router := NewProviderRouter([]RoutedProvider{
		{Provider: secondary, Priority: 1},
		{Provider: primary, Priority: 10},
	}, rm, RouterConfig{}, nil)

	venues, err := router.Search(context.Background(), museumRequest())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "catalog", venues[0].Source)

	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)

	stats := router.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "catalog", stats[0].ProviderName)
	assert.Equal(t, int64(1), stats[0].RequestsSuccess)
	assert.Equal(t, "google", stats[1].ProviderName)
	assert.Equal(t, 1.0, stats[1].FailureRate)
}

func TestProviderRouter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		wantTransient bool
	}{
		{"all permanent", []error{
			types.NewPermanentError("a", "bad key", nil),
			types.NewPermanentError("b", "unsupported", nil),
		}, false},
		{"one transient", []error{
			types.NewPermanentError("a", "bad key", nil),
			errors.New("dial tcp: timeout"),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routed := make([]RoutedProvider, 0, len(tt.errs))
			for i, e := range tt.errs {
				p := newMockProvider(string(rune('a'+i)), true)
				p.On("Search", mock.Anything, mock.Anything).Return(nil, e)
				routed = append(routed, RoutedProvider{Provider: p})
			}

			_, err := NewProviderRouter(routed, nil, RouterConfig{}, nil).Search(context.Background(), museumRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, types.IsTransient(err))
			assert.Equal(t, !tt.wantTransient, types.IsPermanent(err))
		})
	}
}

func TestProviderRouter_SkipsUnavailable(t *testing.T) {
	down := newMockProvider("down", false)
	up := newMockProvider("up", true)
	up.On("Search", mock.Anything, mock.Anything).Return([]types.Venue{}, nil)

	router := NewProviderRouter([]RoutedProvider{{Provider: down, Priority: 5}, {Provider: up}}, nil, RouterConfig{}, nil)
	_, err := router.Search(context.Background(), museumRequest())
	require.NoError(t, err)
	down.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)

	none := NewProviderRouter([]RoutedProvider{{Provider: down}}, nil, RouterConfig{}, nil)
	assert.False(t, none.IsAvailable())
	_, err = none.Search(context.Background(), museumRequest())
	assert.True(t, types.IsTransient(err))
}

func TestProviderRouter_RoundRobin(t *testing.T) {
	a := newMockProvider("a", true)
	b := newMockProvider("b", true)
	a.On("Search", mock.Anything, mock.Anything).Return([]types.Venue{{PlaceID: "from-a"}}, nil)
	b.On("Search", mock.Anything, mock.Anything).Return([]types.Venue{{PlaceID: "from-b"}}, nil)

	router := NewProviderRouter([]RoutedProvider{{Provider: a}, {Provider: b}}, nil, RouterConfig{Strategy: StrategyRoundRobin}, nil)

	first, err := router.Search(context.Background(), museumRequest())
	require.NoError(t, err)
	second, err := router.Search(context.Background(), museumRequest())
	require.NoError(t, err)

	assert.Equal(t, "from-a", first[0].PlaceID)
	assert.Equal(t, "from-b", second[0].PlaceID)
}

func TestProviderRouter_WeightedPrefersReliable(t *testing.T) {
	rm := NewReliabilityManager()
	for i := 0; i < 10; i++ {
		rm.RecordFailureWithError("flaky", errors.New("timeout"))
	}
	rm.RecordSuccessWithTime("steady", 20*time.Millisecond)

	flaky := newMockProvider("flaky", true)
	steady := newMockProvider("steady", true)
	steady.On("Search", mock.Anything, mock.Anything).Return([]types.Venue{{PlaceID: "s"}}, nil)

	router := NewProviderRouter([]RoutedProvider{
		{Provider: flaky, Priority: 10},
		{Provider: steady, Priority: 1},
	}, rm, RouterConfig{Strategy: StrategyWeighted}, nil)

	venues, err := router.Search(context.Background(), museumRequest())
	require.NoError(t, err)
	assert.Equal(t, "s", venues[0].PlaceID)
	flaky.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestReliabilityManager_GetWeight(t *testing.T) {
	rm := NewReliabilityManager()
	assert.Equal(t, 5.0, rm.GetWeight("unknown", 5))

	rm.RecordSuccessWithTime("p", 10*time.Millisecond)
	rm.RecordFailureWithError("p", errors.New("x"))
	assert.InDelta(t, 2.5, rm.GetWeight("p", 5), 1e-9)

	stats, ok := rm.GetStats("p")
	require.True(t, ok)
	assert.Equal(t, "x", stats.LastError)
	assert.Equal(t, int64(2), stats.RequestsTotal)
}

package retrieval

import (
	"context"
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"retrievalagent/places"
	"retrievalagent/quality"
	"retrievalagent/websearch/types"
)

// queryResult ответ клиента для запроса с тем же индексом
type queryResult struct {
	response *types.SearchResponse
	err      error
}

// plannedQueries запросы итерации в детерминированном порядке:
// тип, затем кластеры в порядке разбиения, затем категории плана.
// Пара (тип, кластер) запрашивается, если кластер ниже минимальной доли
// или, пока общая цель по типу не достигнута, ниже справедливой доли.
func (r *run) plannedQueries(v quality.Verdict) []types.SearchRequest {
	partition := r.store.Partition()
	n := float64(partition.Len())

	var queries []types.SearchRequest
	for _, kind := range places.Kinds() {
		required := r.targets[kind]
		if required <= 0 {
			continue
		}
		unmet := v.CountsByKind[kind] < required
		fair := float64(required) / n

		for _, cluster := range partition.Clusters() {
			count := float64(v.CountsByCluster[kind][cluster.ID])
			if count >= v.MinShare[kind] && (!unmet || count >= fair) {
				continue
			}
			radius := r.clusterRadiusFor(cluster.ID, kind)
			for _, category := range r.plan.Categories[kind] {
				queries = append(queries, types.SearchRequest{
					Category:  category,
					Kind:      kind,
					Center:    cluster.Centroid,
					RadiusKm:  radius,
					MinRating: r.thresholds[kind],
					ClusterID: cluster.ID,
				})
			}
		}
	}
	return queries
}

// search выполняет фазу SEARCHING.
// Запросы идут параллельно не более MaxConcurrency, а результаты
// загружаются в хранилище строго в порядке запросов.
func (r *run) search(ctx context.Context, v quality.Verdict) Iteration {
	number := len(r.history) + 1
	ctx, span := otel.Tracer(tracerName).Start(ctx, "retrieval.Iteration")
	defer span.End()

	queries := r.plannedQueries(v)
	it := Iteration{
		Number:             number,
		RadiusKm:           r.globalRadius(),
		Thresholds:         copyThresholds(r.thresholds),
		ClustersTargeted:   []string{},
		CategoriesTargeted: []string{},
		Queries:            make([]QueryOutcome, 0, len(queries)),
	}
	if len(r.clusterRadius) > 0 {
		it.ClusterRadiiKm = make(map[string]float64, len(r.clusterRadius))
		for id, local := range r.clusterRadius {
			it.ClusterRadiiKm[id] = math.Max(local, it.RadiusKm)
		}
	}

	results := r.execute(ctx, queries)

	seenClusters := make(map[string]struct{})
	seenCategories := make(map[string]struct{})
	for i, q := range queries {
		if _, ok := seenClusters[q.ClusterID]; !ok {
			seenClusters[q.ClusterID] = struct{}{}
			it.ClustersTargeted = append(it.ClustersTargeted, q.ClusterID)
		}
		if _, ok := seenCategories[q.Category]; !ok {
			seenCategories[q.Category] = struct{}{}
			it.CategoriesTargeted = append(it.CategoriesTargeted, q.Category)
		}

		res := results[i]
		outcome := QueryOutcome{
			Category:  q.Category,
			Kind:      q.Kind,
			ClusterID: q.ClusterID,
			RadiusKm:  q.RadiusKm,
			MinRating: q.MinRating,
		}
		if res.response != nil {
			outcome.Provider = res.response.Provider
			outcome.Attempts = res.response.Attempts
			outcome.Returned = len(res.response.Candidates)
			outcome.FromCache = res.response.FromCache
			outcome.Added = r.store.Ingest(res.response.Candidates)
		}
		if res.err != nil {
			outcome.Error = res.err.Error()
			outcome.Transient = types.IsTransient(res.err)
		}
		if outcome.Failed() {
			it.Failures++
		}
		it.CandidatesAdded += outcome.Added
		it.Queries = append(it.Queries, outcome)
	}

	span.SetAttributes(
		attribute.Int("retrieval.iteration", number),
		attribute.Int("retrieval.queries", len(queries)),
		attribute.Int("retrieval.added", it.CandidatesAdded),
		attribute.Int("retrieval.failures", it.Failures),
	)
	return it
}

// execute выполняет запросы пулом воркеров
func (r *run) execute(ctx context.Context, queries []types.SearchRequest) []queryResult {
	results := make([]queryResult, len(queries))
	semaphore := make(chan struct{}, r.c.config.MaxConcurrency)
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		semaphore <- struct{}{} // Занимаем слот

		go func(i int, q types.SearchRequest) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resp, err := r.client.Search(ctx, q)
			results[i] = queryResult{response: resp, err: err}
		}(i, q)
	}

	wg.Wait()
	return results
}

package retrieval

import (
	"context"
	"math"
	"sort"

	"retrievalagent/places"
	"retrievalagent/quality"
)

const stepEpsilon = 1e-9

// relaxationOptions применимые ослабления в порядке приоритета:
// перенацеливание кластеров, глобальный радиус, порог рейтинга.
// Кластеры упорядочены по числу перенацеливаний, затем по убыванию
// нехватки, затем по идентификатору.
func (r *run) relaxationOptions(v quality.Verdict) []Relaxation {
	var retarget []Relaxation
	for _, id := range v.CoverageGap {
		kinds := v.LackingKinds(id)
		if len(kinds) == 0 {
			continue
		}
		current := math.Max(r.clusterRadius[id], r.globalRadius())
		next, ok := nextStep(r.c.config.ClusterRadiiKm, current)
		if !ok {
			continue
		}
		retarget = append(retarget, Relaxation{
			Kind:      RelaxRetargetCluster,
			ClusterID: id,
			Kinds:     kinds,
			RadiusKm:  next,
		})
	}
	sort.SliceStable(retarget, func(i, j int) bool {
		a, b := retarget[i].ClusterID, retarget[j].ClusterID
		if r.retargets[a] != r.retargets[b] {
			return r.retargets[a] < r.retargets[b]
		}
		if v.Deficit[a] != v.Deficit[b] {
			return v.Deficit[a] > v.Deficit[b]
		}
		return a < b
	})

	options := retarget
	if radii := r.c.config.GlobalRadiiKm; r.globalStep+1 < len(radii) {
		options = append(options, Relaxation{Kind: RelaxExpandRadius, RadiusKm: radii[r.globalStep+1]})
	}

	lowered := make(map[places.Kind]float64)
	for _, kind := range v.UnmetKinds() {
		current := r.thresholds[kind]
		floor := r.c.config.ThresholdFloors[kind]
		if current <= floor+stepEpsilon {
			continue
		}
		lowered[kind] = round1(math.Max(floor, current-r.c.config.ThresholdStep))
	}
	if len(lowered) > 0 {
		options = append(options, Relaxation{Kind: RelaxLowerThreshold, Thresholds: lowered})
	}
	return options
}

// relax выбирает и применяет одно ослабление.
// Подсказка советника используется, только если она указывает на применимый
// вариант того же вида, что и детерминированный выбор.
func (r *run) relax(ctx context.Context, v quality.Verdict, iteration int) (Relaxation, bool) {
	options := r.relaxationOptions(v)
	if len(options) == 0 {
		return Relaxation{}, false
	}

	chosen := options[0]
	chosen.Source = SourceDeterministic

	// Советник выбирает только внутри высшего применимого уровня приоритета
	options = highestTier(options)
	if advisor := r.c.advisor; advisor != nil && len(options) > 1 {
		idx, err := advisor.Advise(ctx, AdviceRequest{
			Iteration:    iteration,
			Verdict:      v,
			Options:      options,
			Anchor:       r.req.Anchor,
			Neighborhood: r.req.Neighborhood,
		})
		switch {
		case err != nil:
			r.logger.Warn("advisor failed, using deterministic relaxation", "error", err)
		case idx < 0 || idx >= len(options):
			r.logger.Warn("advisor returned unknown option, using deterministic relaxation", "option", idx)
		default:
			chosen = options[idx]
			chosen.Source = SourceAdvisor
		}
	}

	r.apply(chosen)
	return chosen, true
}

// highestTier оставляет варианты того же вида, что и первый
func highestTier(options []Relaxation) []Relaxation {
	n := 1
	for n < len(options) && options[n].Kind == options[0].Kind {
		n++
	}
	return options[:n]
}

// apply изменяет параметры поиска; радиусы только растут, пороги только снижаются
func (r *run) apply(rel Relaxation) {
	switch rel.Kind {
	case RelaxRetargetCluster:
		if rel.RadiusKm > r.clusterRadius[rel.ClusterID] {
			r.clusterRadius[rel.ClusterID] = rel.RadiusKm
		}
		r.clusterKinds[rel.ClusterID] = unionKinds(r.clusterKinds[rel.ClusterID], rel.Kinds)
		r.retargets[rel.ClusterID]++
	case RelaxExpandRadius:
		if r.globalStep+1 < len(r.c.config.GlobalRadiiKm) {
			r.globalStep++
		}
	case RelaxLowerThreshold:
		for kind, value := range rel.Thresholds {
			if value < r.thresholds[kind] {
				r.thresholds[kind] = value
			}
		}
	}
}

// nextStep первый шаг, строго больший текущего значения
func nextStep(steps []float64, current float64) (float64, bool) {
	for _, s := range steps {
		if s > current+stepEpsilon {
			return s, true
		}
	}
	return 0, false
}

func unionKinds(have, add []places.Kind) []places.Kind {
	set := make(map[places.Kind]struct{}, len(have)+len(add))
	for _, k := range have {
		set[k] = struct{}{}
	}
	for _, k := range add {
		set[k] = struct{}{}
	}
	out := make([]places.Kind, 0, len(set))
	for _, k := range places.Kinds() {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

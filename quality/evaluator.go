package quality

import (
	"math"

	"retrievalagent/geo"
	"retrievalagent/interests"
	"retrievalagent/places"
)

// Decision решение по итогам оценки
type Decision string

const (
	DecisionContinue        Decision = "CONTINUE"
	DecisionSuccess         Decision = "TERMINATE_SUCCESS"
	DecisionBudgetExhausted Decision = "TERMINATE_BUDGET_EXHAUSTED"
)

// Terminal сообщает, что цикл поиска должен завершиться
func (d Decision) Terminal() bool {
	return d == DecisionSuccess || d == DecisionBudgetExhausted
}

// Config параметры оценки
type Config struct {
	BalanceFactor float64 `yaml:"balance_factor"`
	MaxIterations int     `yaml:"max_iterations"`
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{BalanceFactor: 0.5, MaxIterations: 6}
}

// Verdict результат оценки накопленных кандидатов
type Verdict struct {
	CountsByKind    map[places.Kind]int            `json:"counts_by_kind"`
	CountsByCluster map[places.Kind]map[string]int `json:"counts_by_cluster"`
	Required        Targets                        `json:"required"`
	MinShare        map[places.Kind]float64        `json:"min_share"`
	// CoverageGap кластеры ниже минимальной доли хотя бы по одному типу, в порядке разбиения
	CoverageGap []string                 `json:"coverage_gap"`
	GapsByKind  map[places.Kind][]string `json:"gaps_by_kind"`
	// Deficit суммарная нехватка кластера до минимальной доли
	Deficit        map[string]float64      `json:"deficit"`
	Relevance      map[places.Kind]float64 `json:"relevance"`
	RelevanceScore float64                 `json:"relevance_score"`
	Decision       Decision                `json:"decision"`
}

// TargetsMet сообщает, что общие цели по всем типам достигнуты
func (v Verdict) TargetsMet() bool {
	for kind, required := range v.Required {
		if v.CountsByKind[kind] < required {
			return false
		}
	}
	return true
}

// UnmetKinds возвращает типы, по которым не достигнута цель или есть пробел покрытия
func (v Verdict) UnmetKinds() []places.Kind {
	var out []places.Kind
	for _, kind := range places.Kinds() {
		if v.CountsByKind[kind] < v.Required[kind] || len(v.GapsByKind[kind]) > 0 {
			out = append(out, kind)
		}
	}
	return out
}

// LackingKinds возвращает типы, по которым кластер ниже минимальной доли
func (v Verdict) LackingKinds(clusterID string) []places.Kind {
	var out []places.Kind
	for _, kind := range places.Kinds() {
		for _, id := range v.GapsByKind[kind] {
			if id == clusterID {
				out = append(out, kind)
				break
			}
		}
	}
	return out
}

// Evaluator оценщик покрытия и релевантности
type Evaluator struct {
	config Config
	plan   interests.Plan
}

// NewEvaluator создает оценщик
func NewEvaluator(config Config, plan interests.Plan) *Evaluator {
	defaults := DefaultConfig()
	if config.BalanceFactor <= 0 || config.BalanceFactor > 1 {
		config.BalanceFactor = defaults.BalanceFactor
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = defaults.MaxIterations
	}
	return &Evaluator{config: config, plan: plan}
}

// Config возвращает параметры оценщика
func (e *Evaluator) Config() Config {
	return e.config
}

// Eligible сообщает, что кандидат не попадает под нежелательные интересы
func (e *Evaluator) Eligible(c places.Candidate) bool {
	return !e.plan.Uninterest.Matches(c.Tags)
}

// Relevant сообщает, что теги кандидата пересекаются с интересами его типа.
// Без интересов для типа любой кандидат считается релевантным.
func (e *Evaluator) Relevant(c places.Candidate) bool {
	m := e.matcher(c.Kind)
	if m.Empty() {
		return true
	}
	return m.Matches(c.Tags)
}

func (e *Evaluator) matcher(kind places.Kind) *interests.TagMatcher {
	if kind == places.KindFood {
		return e.plan.Dietary
	}
	return e.plan.Interest
}

// MinShare минимальная доля кластера: required × 1/кластеров × balance_factor
func (e *Evaluator) MinShare(required, clusters int) float64 {
	if clusters <= 0 || required <= 0 {
		return 0
	}
	return float64(required) / float64(clusters) * e.config.BalanceFactor
}

// Evaluate оценивает хранилище относительно целей.
// historyLen количество уже выполненных итераций поиска.
func (e *Evaluator) Evaluate(store *places.Store, targets Targets, historyLen int) Verdict {
	partition := store.Partition()
	ids := partition.IDs()

	v := Verdict{
		CountsByKind:    make(map[places.Kind]int),
		CountsByCluster: make(map[places.Kind]map[string]int),
		Required:        Targets{},
		MinShare:        make(map[places.Kind]float64),
		CoverageGap:     []string{},
		GapsByKind:      make(map[places.Kind][]string),
		Deficit:         make(map[string]float64),
		Relevance:       make(map[places.Kind]float64),
	}

	relevantTotal, eligibleTotal := 0, 0
	scoredKinds := 0

	for _, kind := range places.Kinds() {
		required := targets[kind]
		v.Required[kind] = required

		counts := make(map[string]int, len(ids))
		for _, id := range ids {
			counts[id] = 0
		}
		relevant := 0
		for _, c := range store.ByKind(kind) {
			if !e.Eligible(c) {
				continue
			}
			counts[c.ClusterID]++
			v.CountsByKind[kind]++
			if e.Relevant(c) {
				relevant++
			}
		}
		v.CountsByCluster[kind] = counts

		share := e.MinShare(required, len(ids))
		v.MinShare[kind] = share
		if required > 0 {
			for _, id := range ids {
				if float64(counts[id]) < share {
					v.GapsByKind[kind] = append(v.GapsByKind[kind], id)
					v.Deficit[id] += share - float64(counts[id])
				}
			}
		}

		v.Relevance[kind] = relevanceScore(relevant, v.CountsByKind[kind], e.matcher(kind).Empty())
		if !e.matcher(kind).Empty() {
			scoredKinds++
			relevantTotal += relevant
			eligibleTotal += v.CountsByKind[kind]
		}
	}

	v.CoverageGap = gapUnion(partition, v.GapsByKind)
	switch {
	case scoredKinds == 0:
		v.RelevanceScore = 1
	case eligibleTotal > 0:
		v.RelevanceScore = round3(float64(relevantTotal) / float64(eligibleTotal))
	}

	switch {
	case v.TargetsMet() && len(v.CoverageGap) == 0:
		v.Decision = DecisionSuccess
	case historyLen >= e.config.MaxIterations:
		v.Decision = DecisionBudgetExhausted
	default:
		v.Decision = DecisionContinue
	}
	return v
}

func relevanceScore(relevant, total int, noInterests bool) float64 {
	if noInterests {
		return 1
	}
	if total == 0 {
		return 0
	}
	return round3(float64(relevant) / float64(total))
}

// gapUnion объединяет пробелы по типам в порядке разбиения
func gapUnion(partition *geo.Partition, gaps map[places.Kind][]string) []string {
	inGap := make(map[string]struct{})
	for _, ids := range gaps {
		for _, id := range ids {
			inGap[id] = struct{}{}
		}
	}
	out := []string{}
	for _, id := range partition.IDs() {
		if _, ok := inGap[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

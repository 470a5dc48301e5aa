package retrieval

import (
	"fmt"
	"strings"

	"retrievalagent/places"
	"retrievalagent/quality"
)

// State состояние контроллера
type State string

const (
	StateInit       State = "INIT"
	StateSearching  State = "SEARCHING"
	StateEvaluating State = "EVALUATING"
	StateFinalizing State = "FINALIZING"
)

// RelaxationKind вид ослабления условий поиска
type RelaxationKind string

const (
	// RelaxRetargetCluster повторный поиск недостающих типов в кластере с увеличенным локальным радиусом
	RelaxRetargetCluster RelaxationKind = "retarget_cluster"
	// RelaxExpandRadius следующий шаг глобального радиуса
	RelaxExpandRadius RelaxationKind = "expand_radius"
	// RelaxLowerThreshold снижение порога рейтинга для недобранных типов
	RelaxLowerThreshold RelaxationKind = "lower_threshold"
)

// Источник решения об ослаблении
const (
	SourceDeterministic = "deterministic"
	SourceAdvisor       = "advisor"
)

// Relaxation одно ослабление, применяемое после оценки
type Relaxation struct {
	Kind       RelaxationKind          `json:"kind"`
	ClusterID  string                  `json:"cluster_id,omitempty"`
	Kinds      []places.Kind           `json:"kinds,omitempty"`
	RadiusKm   float64                 `json:"radius_km,omitempty"`
	Thresholds map[places.Kind]float64 `json:"thresholds,omitempty"`
	Source     string                  `json:"source"`
}

// String краткое описание для логов и подсказок
func (r Relaxation) String() string {
	switch r.Kind {
	case RelaxRetargetCluster:
		kinds := make([]string, len(r.Kinds))
		for i, k := range r.Kinds {
			kinds[i] = string(k)
		}
		return fmt.Sprintf("retarget %s at cluster %s with radius %.0f km", strings.Join(kinds, "+"), r.ClusterID, r.RadiusKm)
	case RelaxExpandRadius:
		return fmt.Sprintf("expand global radius to %.0f km", r.RadiusKm)
	case RelaxLowerThreshold:
		parts := make([]string, 0, len(r.Thresholds))
		for _, k := range places.Kinds() {
			if v, ok := r.Thresholds[k]; ok {
				parts = append(parts, fmt.Sprintf("%s %.1f", k, v))
			}
		}
		return "lower rating threshold: " + strings.Join(parts, ", ")
	default:
		return string(r.Kind)
	}
}

// QueryOutcome результат одного запроса итерации
type QueryOutcome struct {
	Category  string      `json:"category"`
	Kind      places.Kind `json:"kind"`
	ClusterID string      `json:"cluster_id"`
	RadiusKm  float64     `json:"radius_km"`
	MinRating float64     `json:"min_rating"`
	Provider  string      `json:"provider,omitempty"`
	Attempts  int         `json:"attempts"`
	Returned  int         `json:"returned"`
	Added     int         `json:"added"`
	FromCache bool        `json:"from_cache"`
	Error     string      `json:"error,omitempty"`
	Transient bool        `json:"transient,omitempty"`
}

// Failed сообщает, что запрос завершился ошибкой
func (q QueryOutcome) Failed() bool {
	return q.Error != ""
}

// Iteration запись журнала итераций; после добавления не изменяется
type Iteration struct {
	Number int `json:"number"`
	// RadiusKm глобальный радиус итерации
	RadiusKm float64 `json:"radius_km"`
	// ClusterRadiiKm локальные радиусы перенацеленных кластеров
	ClusterRadiiKm     map[string]float64      `json:"cluster_radii_km,omitempty"`
	Thresholds         map[places.Kind]float64 `json:"thresholds"`
	ClustersTargeted   []string                `json:"clusters_targeted"`
	CategoriesTargeted []string                `json:"categories_targeted"`
	Queries            []QueryOutcome          `json:"queries"`
	CandidatesAdded    int                     `json:"candidates_added"`
	Failures           int                     `json:"failures"`
	Decision           quality.Decision        `json:"decision"`
	Relaxation         *Relaxation             `json:"relaxation,omitempty"`
}

func copyThresholds(in map[places.Kind]float64) map[places.Kind]float64 {
	out := make(map[places.Kind]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package quality

import (
	"retrievalagent/places"
	"retrievalagent/requirements"
)

// Targets требуемое количество кандидатов по типам
type Targets map[places.Kind]int

// Total возвращает общее требуемое количество
func (t Targets) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// TargetPolicy эвристика "темп × длительность"
type TargetPolicy struct {
	AttractionsPerDay map[requirements.Pace]int `yaml:"attractions_per_day"`
	FoodPerDay        int                       `yaml:"food_per_day"`
}

// DefaultTargetPolicy возвращает значения по умолчанию: 1/2/3 достопримечательности в день, одно заведение питания
func DefaultTargetPolicy() TargetPolicy {
	return TargetPolicy{
		AttractionsPerDay: map[requirements.Pace]int{
			requirements.PaceRelaxed:  1,
			requirements.PaceModerate: 2,
			requirements.PacePacked:   3,
		},
		FoodPerDay: 1,
	}
}

// Compute рассчитывает цели для требований
func (p TargetPolicy) Compute(req *requirements.Requirement) Targets {
	days := 0
	pace := requirements.PaceModerate
	if req != nil {
		days = req.DurationDays
		pace = req.Pace.Normalize()
	}
	if days < 0 {
		days = 0
	}

	perDay, ok := p.AttractionsPerDay[pace]
	if !ok {
		perDay = DefaultTargetPolicy().AttractionsPerDay[pace]
	}

	return Targets{
		places.KindAttraction: perDay * days,
		places.KindFood:       p.FoodPerDay * days,
	}
}

package carbon

import (
	"fmt"
	"math"
	"strings"

	"retrievalagent/places"
)

// Entry оценка углеродного следа на месте для категории
type Entry struct {
	OnsiteCO2Kg    float64 `json:"onsite_co2_kg" yaml:"onsite_co2_kg"`
	LowCarbonScore int     `json:"low_carbon_score" yaml:"low_carbon_score"`
}

// DefaultEntry консервативная оценка для неизвестных категорий
var DefaultEntry = Entry{OnsiteCO2Kg: 1.5, LowCarbonScore: 50}

// defaultTable таблица по кодам категорий.
// Теги типа ("attraction", "food") в таблицу не входят.
var defaultTable = map[string]Entry{
	"park":                  {OnsiteCO2Kg: 0.1, LowCarbonScore: 95},
	"botanical_garden":      {OnsiteCO2Kg: 0.2, LowCarbonScore: 92},
	"nature_reserve":        {OnsiteCO2Kg: 0.1, LowCarbonScore: 96},
	"hiking_area":           {OnsiteCO2Kg: 0.1, LowCarbonScore: 95},
	"beach":                 {OnsiteCO2Kg: 0.2, LowCarbonScore: 90},
	"place_of_worship":      {OnsiteCO2Kg: 0.3, LowCarbonScore: 85},
	"historical_landmark":   {OnsiteCO2Kg: 0.4, LowCarbonScore: 82},
	"tourist_attraction":    {OnsiteCO2Kg: 1.2, LowCarbonScore: 60},
	"market":                {OnsiteCO2Kg: 0.6, LowCarbonScore: 75},
	"museum":                {OnsiteCO2Kg: 1.0, LowCarbonScore: 70},
	"art_gallery":           {OnsiteCO2Kg: 0.9, LowCarbonScore: 72},
	"observation_deck":      {OnsiteCO2Kg: 1.8, LowCarbonScore: 45},
	"zoo":                   {OnsiteCO2Kg: 2.0, LowCarbonScore: 45},
	"aquarium":              {OnsiteCO2Kg: 2.5, LowCarbonScore: 40},
	"shopping_mall":         {OnsiteCO2Kg: 3.0, LowCarbonScore: 30},
	"amusement_park":        {OnsiteCO2Kg: 3.5, LowCarbonScore: 25},
	"night_club":            {OnsiteCO2Kg: 2.8, LowCarbonScore: 30},
	"bar":                   {OnsiteCO2Kg: 1.6, LowCarbonScore: 48},
	"hawker_centre":         {OnsiteCO2Kg: 0.8, LowCarbonScore: 78},
	"food_court":            {OnsiteCO2Kg: 1.0, LowCarbonScore: 70},
	"cafe":                  {OnsiteCO2Kg: 0.9, LowCarbonScore: 72},
	"vegan_restaurant":      {OnsiteCO2Kg: 0.5, LowCarbonScore: 88},
	"vegetarian_restaurant": {OnsiteCO2Kg: 0.7, LowCarbonScore: 84},
	"halal_restaurant":      {OnsiteCO2Kg: 1.7, LowCarbonScore: 50},
	"restaurant":            {OnsiteCO2Kg: 2.0, LowCarbonScore: 45},
	"seafood_restaurant":    {OnsiteCO2Kg: 2.6, LowCarbonScore: 38},
}

// reservedTags теги типа, которые не могут иметь записи
var reservedTags = map[string]struct{}{
	string(places.KindAttraction): {},
	string(places.KindFood):       {},
}

// Scorer оценивает кандидатов по первому тегу с записью в таблице
type Scorer struct {
	table    map[string]Entry
	fallback Entry
}

// NewScorer создает оценщик; overrides дополняют и заменяют записи таблицы по умолчанию
func NewScorer(overrides map[string]Entry) (*Scorer, error) {
	table := make(map[string]Entry, len(defaultTable)+len(overrides))
	for tag, e := range defaultTable {
		table[tag] = e
	}
	for tag, e := range overrides {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if _, reserved := reservedTags[tag]; reserved {
			return nil, fmt.Errorf("carbon table cannot contain kind tag %q", tag)
		}
		if tag == "" {
			return nil, fmt.Errorf("carbon table contains empty tag")
		}
		if e.OnsiteCO2Kg < 0 {
			return nil, fmt.Errorf("carbon entry %q has negative onsite_co2_kg", tag)
		}
		table[tag] = e
	}
	return &Scorer{table: table, fallback: DefaultEntry}, nil
}

// DefaultScorer оценщик с таблицей по умолчанию
func DefaultScorer() *Scorer {
	s, _ := NewScorer(nil)
	return s
}

// Lookup возвращает запись для упорядоченного списка тегов
func (s *Scorer) Lookup(tags []string) (Entry, bool) {
	for _, tag := range tags {
		if e, ok := s.table[tag]; ok {
			return e, true
		}
	}
	return s.fallback, false
}

// Score возвращает копию кандидата с заполненной оценкой.
// Уже оцененный кандидат возвращается без изменений.
func (s *Scorer) Score(c places.Candidate) places.Candidate {
	if c.Scored {
		return c
	}
	e, _ := s.Lookup(c.Tags)
	out := c.Clone()
	out.OnsiteCO2Kg = math.Max(0, e.OnsiteCO2Kg)
	out.LowCarbonScore = clampScore(e.LowCarbonScore)
	out.Scored = true
	return out
}

// ScoreAll оценивает список кандидатов с сохранением порядка
func (s *Scorer) ScoreAll(candidates []places.Candidate) []places.Candidate {
	out := make([]places.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = s.Score(c)
	}
	return out
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

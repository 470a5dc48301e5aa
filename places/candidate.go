package places

import (
	"retrievalagent/geo"
)

// Kind тип кандидата с отдельной целевой квотой
type Kind string

const (
	// KindAttraction достопримечательности и активности
	KindAttraction Kind = "attraction"
	// KindFood заведения питания
	KindFood Kind = "food"
)

// Kinds возвращает все типы в фиксированном порядке
func Kinds() []Kind {
	return []Kind{KindAttraction, KindFood}
}

// Valid проверяет, что тип известен
func (k Kind) Valid() bool {
	return k == KindAttraction || k == KindFood
}

// Candidate найденное место
type Candidate struct {
	PlaceID        string    `json:"place_id"`
	Name           string    `json:"name"`
	Location       geo.Point `json:"geo"`
	ClusterID      string    `json:"geo_cluster_id"`
	Kind           Kind      `json:"kind"`
	Category       string    `json:"category"`
	Tags           []string  `json:"tags"`
	Rating         float64   `json:"rating"`
	Address        string    `json:"address,omitempty"`
	Source         string    `json:"source,omitempty"`
	OnsiteCO2Kg    float64   `json:"onsite_co2_kg"`
	LowCarbonScore int       `json:"low_carbon_score"`
	Scored         bool      `json:"-"`
}

// Clone возвращает копию кандидата с собственным срезом тегов
func (c Candidate) Clone() Candidate {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return out
}

// HasTag проверяет наличие тега (теги хранятся в нижнем регистре)
func (c Candidate) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

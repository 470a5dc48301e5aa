package retrieval

import (
	"encoding/json"
	"fmt"
	"os"

	"retrievalagent/geo"
	"retrievalagent/places"
)

// Document выходной документ
type Document struct {
	Retrieval Section `json:"retrieval"`
}

// Section раздел retrieval выходного документа
type Section struct {
	PlacesMatrix PlacesMatrix `json:"places_matrix"`
}

// PlacesMatrix список финалистов
type PlacesMatrix struct {
	Candidates []OutputCandidate `json:"candidates"`
}

// OutputCandidate кандидат во внешнем формате
type OutputCandidate struct {
	PlaceID        string    `json:"place_id"`
	Name           string    `json:"name"`
	Geo            geo.Point `json:"geo"`
	GeoClusterID   string    `json:"geo_cluster_id"`
	OnsiteCO2Kg    float64   `json:"onsite_co2_kg"`
	LowCarbonScore int       `json:"low_carbon_score"`
	Tags           []string  `json:"tags"`
}

// Assemble проецирует финалистов в выходной документ без повторных запросов и пересчета оценок
func Assemble(candidates []places.Candidate) Document {
	out := make([]OutputCandidate, 0, len(candidates))
	for _, c := range candidates {
		tags := make([]string, len(c.Tags))
		copy(tags, c.Tags)
		out = append(out, OutputCandidate{
			PlaceID:        c.PlaceID,
			Name:           c.Name,
			Geo:            c.Location,
			GeoClusterID:   c.ClusterID,
			OnsiteCO2Kg:    c.OnsiteCO2Kg,
			LowCarbonScore: c.LowCarbonScore,
			Tags:           tags,
		})
	}
	return Document{Retrieval: Section{PlacesMatrix: PlacesMatrix{Candidates: out}}}
}

// Marshal сериализует документ с отступами
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile записывает документ в файл
func (d Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

package database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// catalogColumns обязательные колонки CSV каталога
var catalogColumns = []string{"place_id", "name", "latitude", "longitude", "kind", "category"}

// ReadCatalogCSV читает места каталога из CSV с заголовком.
// Колонки types (через ";"), rating и address необязательны.
func ReadCatalogCSV(r io.Reader) ([]CatalogPlace, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range catalogColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("catalog csv missing column %q", col)
		}
	}

	get := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var places []CatalogPlace
	var problems []string
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		p := CatalogPlace{
			PlaceID:  get(record, "place_id"),
			Name:     get(record, "name"),
			Kind:     strings.ToLower(get(record, "kind")),
			Category: strings.ToLower(get(record, "category")),
			Address:  get(record, "address"),
		}
		if p.PlaceID == "" {
			problems = append(problems, fmt.Sprintf("line %d: empty place_id", line))
			continue
		}

		lat, errLat := strconv.ParseFloat(get(record, "latitude"), 64)
		lng, errLng := strconv.ParseFloat(get(record, "longitude"), 64)
		if errLat != nil || errLng != nil {
			problems = append(problems, fmt.Sprintf("line %d: invalid coordinates", line))
			continue
		}
		p.Latitude, p.Longitude = lat, lng

		if raw := get(record, "rating"); raw != "" {
			rating, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("line %d: invalid rating %q", line, raw))
				continue
			}
			p.Rating = rating
		}

		for _, t := range strings.Split(get(record, "types"), ";") {
			if t = strings.TrimSpace(t); t != "" {
				p.Types = append(p.Types, strings.ToLower(t))
			}
		}

		places = append(places, p)
	}

	if len(problems) > 0 {
		return places, fmt.Errorf("catalog csv has %d invalid rows: %s", len(problems), strings.Join(problems, "; "))
	}
	return places, nil
}

// WriteCatalogCSV записывает места каталога в CSV
func WriteCatalogCSV(w io.Writer, places []CatalogPlace) error {
	writer := csv.NewWriter(w)
	header := append(append([]string{}, catalogColumns...), "types", "rating", "address")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, p := range places {
		record := []string{
			p.PlaceID,
			p.Name,
			strconv.FormatFloat(p.Latitude, 'f', 6, 64),
			strconv.FormatFloat(p.Longitude, 'f', 6, 64),
			p.Kind,
			p.Category,
			strings.Join(p.Types, ";"),
			strconv.FormatFloat(p.Rating, 'f', 1, 64),
			p.Address,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write place %s: %w", p.PlaceID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

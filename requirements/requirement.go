package requirements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"retrievalagent/geo"
)

// Pace темп поездки
type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PacePacked   Pace = "packed"
)

// Normalize приводит темп к известному значению; неизвестный темп считается умеренным
func (p Pace) Normalize() Pace {
	switch Pace(strings.ToLower(strings.TrimSpace(string(p)))) {
	case PaceRelaxed:
		return PaceRelaxed
	case PacePacked:
		return PacePacked
	default:
		return PaceModerate
	}
}

// Requirement неизменяемые требования к поездке
type Requirement struct {
	DestinationCity    string     `json:"destination_city"`
	StartDate          string     `json:"start_date"`
	EndDate            string     `json:"end_date"`
	DurationDays       int        `json:"duration_days"`
	Adults             int        `json:"adults"`
	Children           int        `json:"children"`
	Budget             string     `json:"budget"`
	BudgetAmount       float64    `json:"budget_amount,omitempty"`
	Pace               Pace       `json:"pace"`
	Interests          []string   `json:"interests"`
	Uninterests        []string   `json:"uninterests"`
	DietaryPreferences []string   `json:"dietary_preferences"`
	AccessibilityNeeds string     `json:"accessibility_needs,omitempty"`
	Accessibility      bool       `json:"accessibility"`
	Neighborhood       string     `json:"neighborhood,omitempty"`
	Anchor             *geo.Point `json:"anchor,omitempty"`
	GroupType          string     `json:"group_type,omitempty"`
	EcoPreferences     string     `json:"eco_preferences,omitempty"`
	// Warnings замечания к необязательным деталям документа, не мешающие запуску
	Warnings []string `json:"warnings,omitempty"`
}

// document входной JSON-документ
type document struct {
	DestinationCity string `json:"destination_city"`
	TripDates       json.RawMessage `json:"trip_dates"`
	DurationDays    *int            `json:"duration_days"`
	Travelers    struct {
		Adults   int `json:"adults"`
		Children int `json:"children"`
	} `json:"travelers"`
	Budget         json.RawMessage `json:"budget"`
	BudgetTotalSGD *float64        `json:"budget_total_sgd"`
	Pace           *string         `json:"pace"`
	Optional       *optional       `json:"optional"`
}

type optional struct {
	Interests             stringList     `json:"interests"`
	Uninterests           stringList     `json:"uninterests"`
	DietaryPreferences    stringList     `json:"dietary_preferences"`
	AccessibilityNeeds    string         `json:"accessibility_needs"`
	AccommodationLocation *accommodation `json:"accommodation_location"`
	GroupType             string         `json:"group_type"`
	EcoPreferences        string         `json:"eco_preferences"`
}

type accommodation struct {
	Neighborhood string   `json:"neighborhood"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Lon          *float64 `json:"lon"`
}

// stringList принимает как массив строк, так и одну строку через запятую
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = splitList(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*s = out
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load читает и проверяет документ требований из файла
func Load(path string) (*Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirement file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает и проверяет документ требований.
// Документ может быть как самими требованиями, так и объектом с ключом "requirements".
func Parse(data []byte) (*Requirement, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if nested, ok := raw["requirements"]; ok {
		if _, direct := raw["duration_days"]; !direct {
			data = nested
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("invalid document: %v", err)}}
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc.toRequirement(), nil
}

// validate проверяет обязательные поля
func (d *document) validate() error {
	var problems []string

	if isNull(d.TripDates) {
		problems = append(problems, "missing required field: trip_dates")
	}

	if d.DurationDays == nil {
		problems = append(problems, "missing required field: duration_days")
	} else if *d.DurationDays <= 0 {
		problems = append(problems, "duration_days must be positive")
	}

	if isNull(d.Budget) {
		problems = append(problems, "missing required field: budget")
	}

	if d.Pace == nil {
		problems = append(problems, "missing required field: pace")
	}

	if d.Optional != nil {
		acc := d.Optional.AccommodationLocation
		switch {
		case acc == nil:
			problems = append(problems, "missing required field: optional.accommodation_location")
		case acc.Lat != nil && acc.Lng == nil && acc.Lon == nil:
			problems = append(problems, "optional.accommodation_location: lat requires lng or lon")
		case acc.Lat == nil && (acc.Lng != nil || acc.Lon != nil):
			problems = append(problems, "optional.accommodation_location: lng/lon requires lat")
		case acc.Lat != nil:
			p := geo.Point{Latitude: *acc.Lat, Longitude: acc.longitude()}
			if !p.Valid() {
				problems = append(problems, "optional.accommodation_location: coordinates out of range")
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// dateLayouts форматы дат, которые приводятся к YYYY-MM-DD
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseTripDates разбирает trip_dates без ошибок: даты в поиске не участвуют.
// Принимает объект с start_date/end_date (или start/end, from/to) и строку "A to B".
func parseTripDates(raw json.RawMessage) (start, end string, warnings []string) {
	var text string
	var fields map[string]any
	switch {
	case json.Unmarshal(raw, &text) == nil:
		parts := strings.SplitN(text, " to ", 2)
		start = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			end = strings.TrimSpace(parts[1])
		}
	case json.Unmarshal(raw, &fields) == nil:
		start = firstField(fields, "start_date", "start", "from")
		end = firstField(fields, "end_date", "end", "to")
	default:
		return "", "", []string{"trip_dates has an unsupported format"}
	}

	var startTime, endTime time.Time
	var ok bool
	if start, startTime, ok = normalizeDate(start); !ok {
		warnings = append(warnings, fmt.Sprintf("trip_dates start %q is not a recognized date", start))
	}
	if end, endTime, ok = normalizeDate(end); !ok {
		warnings = append(warnings, fmt.Sprintf("trip_dates end %q is not a recognized date", end))
	}
	if !startTime.IsZero() && !endTime.IsZero() && endTime.Before(startTime) {
		warnings = append(warnings, "trip_dates end is before start")
	}
	return start, end, warnings
}

func firstField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

// normalizeDate возвращает дату в формате YYYY-MM-DD; нераспознанная дата остается как есть
func normalizeDate(value string) (string, time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), t, true
		}
	}
	return value, time.Time{}, false
}

func (a *accommodation) longitude() float64 {
	if a.Lng != nil {
		return *a.Lng
	}
	if a.Lon != nil {
		return *a.Lon
	}
	return 0
}

func (d *document) toRequirement() *Requirement {
	r := &Requirement{
		DestinationCity: strings.TrimSpace(d.DestinationCity),
		DurationDays:    *d.DurationDays,
		Adults:          d.Travelers.Adults,
		Children:        d.Travelers.Children,
		Pace:            Pace(*d.Pace).Normalize(),
	}
	if r.DestinationCity == "" {
		r.DestinationCity = "Singapore"
	}
	r.StartDate, r.EndDate, r.Warnings = parseTripDates(d.TripDates)

	// budget: строка уровня ("medium") или число
	var level string
	var amount float64
	if err := json.Unmarshal(d.Budget, &level); err == nil {
		r.Budget = strings.TrimSpace(level)
		if v, err := strconv.ParseFloat(r.Budget, 64); err == nil {
			r.BudgetAmount = v
		}
	} else if err := json.Unmarshal(d.Budget, &amount); err == nil {
		r.Budget = strconv.FormatFloat(amount, 'f', -1, 64)
		r.BudgetAmount = amount
	} else {
		r.Budget = string(d.Budget)
	}
	if d.BudgetTotalSGD != nil {
		r.BudgetAmount = *d.BudgetTotalSGD
	}

	if o := d.Optional; o != nil {
		r.Interests = o.Interests
		r.Uninterests = o.Uninterests
		r.DietaryPreferences = o.DietaryPreferences
		r.AccessibilityNeeds = strings.TrimSpace(o.AccessibilityNeeds)
		r.Accessibility = needsAccessibility(r.AccessibilityNeeds)
		r.GroupType = o.GroupType
		r.EcoPreferences = o.EcoPreferences
		if acc := o.AccommodationLocation; acc != nil {
			r.Neighborhood = acc.Neighborhood
			if acc.Lat != nil {
				r.Anchor = &geo.Point{Latitude: *acc.Lat, Longitude: acc.longitude()}
			}
		}
	}
	return r
}

// needsAccessibility интерпретирует текстовое поле доступности
func needsAccessibility(text string) bool {
	switch strings.ToLower(text) {
	case "", "none", "no", "n/a", "na", "false":
		return false
	default:
		return true
	}
}

// WithAnchor возвращает копию требований с другой точкой проживания
func (r Requirement) WithAnchor(p geo.Point) *Requirement {
	r.Anchor = &p
	return &r
}

// ParseAnchor разбирает точку проживания в виде "lat,lon"
func ParseAnchor(value string) (geo.Point, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("accommodation must be lat,lon, got %q", value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid accommodation latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid accommodation longitude %q: %w", parts[1], err)
	}
	p := geo.Point{Latitude: lat, Longitude: lon}
	if !p.Valid() || p.IsZero() {
		return geo.Point{}, fmt.Errorf("accommodation %q is out of range", value)
	}
	return p, nil
}

package websearch

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"retrievalagent/geo"
	"retrievalagent/places"
	"retrievalagent/websearch/types"
)

var lowerCaser = cases.Lower(language.Und)

// normalizeVenues приводит записи провайдера к форме кандидатов.
// Отбрасываются записи без place id, с некорректными координатами, вне
// радиуса запроса и с рейтингом ниже порога.
func normalizeVenues(req types.SearchRequest, venues []types.Venue, provider string) []places.Candidate {
	out := make([]places.Candidate, 0, len(venues))
	seen := make(map[string]struct{}, len(venues))

	for _, v := range venues {
		id := strings.TrimSpace(v.PlaceID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		location := geo.Point{Latitude: v.Latitude, Longitude: v.Longitude}
		if !location.Valid() || location.IsZero() {
			continue
		}
		if geo.HaversineKm(req.Center, location) > req.RadiusKm {
			continue
		}

		rating := clampRating(v.Rating)
		if rating < req.MinRating {
			continue
		}

		source := v.Source
		if source == "" {
			source = provider
		}

		seen[id] = struct{}{}
		out = append(out, places.Candidate{
			PlaceID:  id,
			Name:     NormalizeName(v.Name),
			Location: location,
			Kind:     req.Kind,
			Category: NormalizeTag(req.Category),
			Tags:     buildTags(req, v.Types),
			Rating:   rating,
			Address:  strings.TrimSpace(v.Address),
			Source:   source,
		})
	}
	return out
}

// NormalizeName приводит название к NFC и схлопывает пробелы
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// NormalizeTag приводит тег к нижнему регистру, пробелы и дефисы заменяются на "_"
func NormalizeTag(tag string) string {
	tag = lowerCaser.String(norm.NFC.String(strings.TrimSpace(tag)))
	tag = strings.NewReplacer(" ", "_", "-", "_").Replace(tag)
	return tag
}

// buildTags формирует упорядоченный список тегов: тип кандидата, затем типы
// площадки в порядке провайдера, затем категория запроса, если ее не было
func buildTags(req types.SearchRequest, venueTypes []string) []string {
	tags := make([]string, 0, len(venueTypes)+2)
	seen := make(map[string]struct{}, len(venueTypes)+2)

	add := func(tag string) {
		tag = NormalizeTag(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(string(req.Kind))
	for _, t := range venueTypes {
		add(t)
	}
	add(req.Category)
	return tags
}

func clampRating(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

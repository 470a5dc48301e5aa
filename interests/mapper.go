package interests

import (
	"errors"
	"sort"
	"strings"

	"retrievalagent/places"
)

// ErrNoMapping ни один текст не сопоставлен с категорией
var ErrNoMapping = errors.New("no category mapping found")

// Mapper сопоставляет свободный текст интересов с кодами категорий поиска
type Mapper interface {
	Map(texts []string) ([]string, error)
}

// MapperFunc адаптер функции к Mapper
type MapperFunc func(texts []string) ([]string, error)

// Map вызывает функцию
func (f MapperFunc) Map(texts []string) ([]string, error) {
	return f(texts)
}

// Rule ключевые слова и категории, которые они включают
type Rule struct {
	Keywords   []string
	Categories []string
}

// categoryKinds тип кандидата для известных кодов категорий
var categoryKinds = map[string]places.Kind{
	"tourist_attraction":    places.KindAttraction,
	"museum":                places.KindAttraction,
	"art_gallery":           places.KindAttraction,
	"historical_landmark":   places.KindAttraction,
	"park":                  places.KindAttraction,
	"botanical_garden":      places.KindAttraction,
	"hiking_area":           places.KindAttraction,
	"nature_reserve":        places.KindAttraction,
	"zoo":                   places.KindAttraction,
	"aquarium":              places.KindAttraction,
	"amusement_park":        places.KindAttraction,
	"beach":                 places.KindAttraction,
	"shopping_mall":         places.KindAttraction,
	"market":                places.KindAttraction,
	"place_of_worship":      places.KindAttraction,
	"observation_deck":      places.KindAttraction,
	"night_club":            places.KindAttraction,
	"bar":                   places.KindAttraction,
	"hawker_centre":         places.KindFood,
	"restaurant":            places.KindFood,
	"cafe":                  places.KindFood,
	"vegetarian_restaurant": places.KindFood,
	"vegan_restaurant":      places.KindFood,
	"halal_restaurant":      places.KindFood,
	"seafood_restaurant":    places.KindFood,
	"food_court":            places.KindFood,
}

// DefaultRules таблица ключевых слов по умолчанию
var DefaultRules = []Rule{
	{Keywords: []string{"museum", "history", "heritage", "culture", "cultural"}, Categories: []string{"museum", "historical_landmark"}},
	{Keywords: []string{"art", "gallery", "exhibition"}, Categories: []string{"art_gallery", "museum"}},
	{Keywords: []string{"nature", "park", "garden", "outdoor", "greenery"}, Categories: []string{"park", "botanical_garden"}},
	{Keywords: []string{"hiking", "trail", "trekking"}, Categories: []string{"hiking_area", "nature_reserve"}},
	{Keywords: []string{"animal", "wildlife", "zoo"}, Categories: []string{"zoo"}},
	{Keywords: []string{"aquarium", "marine"}, Categories: []string{"aquarium"}},
	{Keywords: []string{"theme", "rides", "family", "kids", "children"}, Categories: []string{"amusement_park", "zoo", "aquarium"}},
	{Keywords: []string{"beach", "island", "seaside"}, Categories: []string{"beach"}},
	{Keywords: []string{"shopping", "mall", "boutique"}, Categories: []string{"shopping_mall"}},
	{Keywords: []string{"market", "bazaar", "flea"}, Categories: []string{"market"}},
	{Keywords: []string{"temple", "mosque", "church", "religion", "spiritual"}, Categories: []string{"place_of_worship"}},
	{Keywords: []string{"architecture", "landmark", "skyline", "view", "sightseeing"}, Categories: []string{"tourist_attraction", "observation_deck"}},
	{Keywords: []string{"nightlife", "club", "party"}, Categories: []string{"night_club", "bar"}},
	{Keywords: []string{"food", "hawker", "street", "local", "cuisine"}, Categories: []string{"hawker_centre"}},
	{Keywords: []string{"coffee", "cafe", "brunch", "dessert"}, Categories: []string{"cafe"}},
	{Keywords: []string{"dining", "restaurant", "fine"}, Categories: []string{"restaurant"}},
	{Keywords: []string{"vegetarian"}, Categories: []string{"vegetarian_restaurant"}},
	{Keywords: []string{"vegan", "plant"}, Categories: []string{"vegan_restaurant", "vegetarian_restaurant"}},
	{Keywords: []string{"halal", "muslim"}, Categories: []string{"halal_restaurant"}},
	{Keywords: []string{"seafood", "fish", "crab"}, Categories: []string{"seafood_restaurant"}},
}

// DefaultCategories категории по умолчанию для каждого типа
var DefaultCategories = map[places.Kind][]string{
	places.KindAttraction: {"tourist_attraction", "museum", "park"},
	places.KindFood:       {"hawker_centre", "restaurant"},
}

// KindOf возвращает тип кандидата для кода категории.
// Неизвестные коды считаются достопримечательностями.
func KindOf(category string) places.Kind {
	if kind, ok := categoryKinds[strings.ToLower(category)]; ok {
		return kind
	}
	return places.KindAttraction
}

// KeywordMapper сопоставление по основам ключевых слов
type KeywordMapper struct {
	stemmer *Stemmer
	index   map[string][]string
}

// NewKeywordMapper создает маппер по таблице правил; nil - правила по умолчанию
func NewKeywordMapper(rules []Rule) *KeywordMapper {
	if rules == nil {
		rules = DefaultRules
	}
	m := &KeywordMapper{
		stemmer: NewStemmer(),
		index:   make(map[string][]string),
	}
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			stem := m.stemmer.Stem(kw)
			m.index[stem] = appendUnique(m.index[stem], rule.Categories...)
		}
	}
	return m
}

// Map возвращает коды категорий в порядке первого упоминания.
// Возвращает ErrNoMapping, если ни одно слово не распознано.
func (m *KeywordMapper) Map(texts []string) ([]string, error) {
	var out []string
	for _, text := range texts {
		// Текст, совпадающий с кодом категории, принимается как есть
		code := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "_")
		if _, known := categoryKinds[code]; known {
			out = appendUnique(out, code)
			continue
		}
		for _, stem := range m.stemmer.StemTokens(text) {
			out = appendUnique(out, m.index[stem]...)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMapping
	}
	return out, nil
}

// Keywords возвращает отсортированный список основ, известных мапперу
func (m *KeywordMapper) Keywords() []string {
	out := make([]string, 0, len(m.index))
	for k := range m.index {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

package interests

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"retrievalagent/places"
)

// Plan категории поиска и сопоставители, выведенные из требований
type Plan struct {
	Categories map[places.Kind][]string
	Interest   *TagMatcher
	Dietary    *TagMatcher
	Uninterest *TagMatcher
	// Defaulted типы, для которых использованы категории по умолчанию
	Defaulted []places.Kind
}

// BuildPlan строит план поиска.
// Ошибка маппера не фатальна: используются категории по умолчанию.
func BuildPlan(mapper Mapper, interests, uninterests, dietary []string, logger *slog.Logger) Plan {
	if mapper == nil {
		mapper = NewKeywordMapper(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	stemmer := NewStemmer()

	interestCats := mapSafely(mapper, interests, "interests", logger)
	dietaryCats := mapSafely(mapper, dietary, "dietary_preferences", logger)
	uninterests = withoutStopWords(uninterests)
	uninterestCats := mapSafely(mapper, uninterests, "uninterests", logger)

	excluded := make(map[string]struct{}, len(uninterestCats))
	for _, c := range uninterestCats {
		excluded[c] = struct{}{}
	}

	plan := Plan{Categories: make(map[places.Kind][]string)}

	for _, c := range append(append([]string{}, interestCats...), dietaryCats...) {
		if _, skip := excluded[c]; skip {
			continue
		}
		kind := KindOf(c)
		plan.Categories[kind] = appendUnique(plan.Categories[kind], c)
	}

	for _, kind := range places.Kinds() {
		if len(plan.Categories[kind]) > 0 {
			continue
		}
		var defaults []string
		for _, c := range DefaultCategories[kind] {
			if _, skip := excluded[c]; !skip {
				defaults = append(defaults, c)
			}
		}
		if len(defaults) == 0 {
			defaults = append(defaults, DefaultCategories[kind]...)
		}
		plan.Categories[kind] = defaults
		plan.Defaulted = append(plan.Defaulted, kind)
	}

	if len(interests) > 0 {
		plan.Interest = NewTagMatcher(stemmer, filterKind(interestCats, places.KindAttraction), interests)
	}
	if len(dietary) > 0 {
		plan.Dietary = NewTagMatcher(stemmer, filterKind(dietaryCats, places.KindFood), dietary)
	}
	if len(uninterests) > 0 {
		plan.Uninterest = NewExclusionMatcher(stemmer, uninterestCats, uninterests)
	}

	return plan
}

// AllCategories возвращает все категории плана, отсортированные
func (p Plan) AllCategories() []string {
	var out []string
	for _, kind := range places.Kinds() {
		out = appendUnique(out, p.Categories[kind]...)
	}
	sort.Strings(out)
	return out
}

func mapSafely(mapper Mapper, texts []string, field string, logger *slog.Logger) []string {
	if len(texts) == 0 {
		return nil
	}
	cats, err := mapper.Map(texts)
	if err != nil {
		if errors.Is(err, ErrNoMapping) {
			logger.Info("no categories matched, using defaults", "field", field, "texts", texts)
		} else {
			logger.Warn("category mapping failed, using defaults", "field", field, "error", err)
		}
		return nil
	}
	return cats
}

// withoutStopWords убирает общие слова из текстов; "fast food" не должен исключать всю еду
func withoutStopWords(texts []string) []string {
	var out []string
	for _, text := range texts {
		var kept []string
		for _, token := range Tokenize(text) {
			if !IsStopWord(token) {
				kept = append(kept, token)
			}
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, " "))
		}
	}
	return out
}

func filterKind(categories []string, kind places.Kind) []string {
	var out []string
	for _, c := range categories {
		if KindOf(c) == kind {
			out = append(out, c)
		}
	}
	return out
}

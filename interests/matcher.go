package interests

import (
	"strings"
)

// genericTags теги, которые есть почти у любого места и не говорят об интересе
var genericTags = map[string]struct{}{
	"attraction":        {},
	"food":              {},
	"point_of_interest": {},
	"establishment":     {},
}

// stopWords слова, не участвующие в сопоставлении по основам
var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "not": {}, "any": {}, "like": {}, "love": {},
	"place": {}, "places": {}, "food": {}, "spot": {}, "spots": {}, "thing": {}, "things": {},
	"area": {}, "areas": {}, "too": {}, "very": {},
}

// IsStopWord сообщает, что слово слишком общее для сопоставления
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// TagMatcher проверяет пересечение тегов кандидата с интересами.
// Совпадение: тег равен коду категории или основа слова тега совпадает
// с основой слова из исходного текста пользователя.
// В режиме исключения слово пользователя должно совпасть с тегом целиком.
type TagMatcher struct {
	codes    map[string]struct{}
	stems    map[string]struct{}
	stemmer  *Stemmer
	wholeTag bool
}

// NewTagMatcher создает сопоставитель по кодам категорий и исходным словам
func NewTagMatcher(stemmer *Stemmer, codes []string, words []string) *TagMatcher {
	if stemmer == nil {
		stemmer = NewStemmer()
	}
	m := &TagMatcher{
		codes:   make(map[string]struct{}),
		stems:   make(map[string]struct{}),
		stemmer: stemmer,
	}
	for _, c := range codes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			m.codes[c] = struct{}{}
		}
	}
	for _, w := range words {
		for _, token := range Tokenize(w) {
			if len(token) < 3 {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			m.stems[stemmer.Stem(token)] = struct{}{}
		}
	}
	return m
}

// NewExclusionMatcher создает сопоставитель нежелательных интересов:
// составной тег вроде place_of_worship не совпадает с отдельным словом "places"
func NewExclusionMatcher(stemmer *Stemmer, codes []string, words []string) *TagMatcher {
	m := NewTagMatcher(stemmer, codes, words)
	m.wholeTag = true
	return m
}

// Empty сообщает, что сопоставлять не с чем
func (m *TagMatcher) Empty() bool {
	return m == nil || (len(m.codes) == 0 && len(m.stems) == 0)
}

// Matches проверяет, что хотя бы один тег совпадает
func (m *TagMatcher) Matches(tags []string) bool {
	if m.Empty() {
		return false
	}
	for _, tag := range tags {
		if _, generic := genericTags[tag]; generic {
			continue
		}
		if _, ok := m.codes[tag]; ok {
			return true
		}
		if len(m.stems) == 0 {
			continue
		}
		tokens := Tokenize(tag)
		if m.wholeTag && len(tokens) != 1 {
			continue
		}
		for _, token := range tokens {
			if _, ok := m.stems[m.stemmer.Stem(token)]; ok {
				return true
			}
		}
	}
	return false
}

// Codes возвращает коды категорий сопоставителя
func (m *TagMatcher) Codes() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.codes))
	for c := range m.codes {
		out = append(out, c)
	}
	return out
}

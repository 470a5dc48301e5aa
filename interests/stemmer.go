package interests

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"
)

// Stemmer стеммер английского языка на основе Snowball с кэшем
type Stemmer struct {
	language string
	cache    map[string]string
	mu       sync.RWMutex
}

// NewStemmer создает стеммер английского языка
func NewStemmer() *Stemmer {
	return &Stemmer{
		language: "english",
		cache:    make(map[string]string),
	}
}

// Stem возвращает основу слова.
// Пример: "museums" -> "museum", "gardens" -> "garden"
func (s *Stemmer) Stem(word string) string {
	normalized := strings.ToLower(strings.TrimSpace(word))
	if normalized == "" {
		return ""
	}

	s.mu.RLock()
	if cached, found := s.cache[normalized]; found {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	stemmed, err := snowball.Stem(normalized, s.language, true)
	if err != nil || stemmed == "" {
		stemmed = normalized
	}

	s.mu.Lock()
	s.cache[normalized] = stemmed
	s.mu.Unlock()

	return stemmed
}

// StemTokens разбивает текст на слова и возвращает их основы
// Пример: "Art galleries & museums" -> ["art", "galleri", "museum"]
func (s *Stemmer) StemTokens(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if stem := s.Stem(t); stem != "" {
			out = append(out, stem)
		}
	}
	return out
}

// Tokenize разбивает текст на слова по небуквенным символам
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

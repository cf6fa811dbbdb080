package jargon

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Jaro-Winkler floor for entities that already share a Double Metaphone
// code with the input. Entities with no phonetic overlap need to clear the
// higher fuzzy threshold instead.
const phoneticThreshold = 0.70

// Matcher finds the dictionary entity closest to a spoken word or phrase.
// It filters candidates by Double Metaphone code overlap and ranks them by
// Jaro-Winkler similarity. Read-only after construction.
type Matcher struct {
	fuzzyThreshold float64
	entities       []preparedEntity
	maxWords       int
}

type preparedEntity struct {
	text   string
	tokens []string
	codes  map[string]struct{}
}

// NewMatcher prepares the entity list. fuzzyThreshold is the similarity a
// non-phonetic candidate must reach; values outside (0,1] fall back to
// 0.82.
func NewMatcher(entities []string, fuzzyThreshold float64) *Matcher {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = 0.82
	}
	m := &Matcher{fuzzyThreshold: fuzzyThreshold, maxWords: 1}
	for _, entity := range entities {
		normalized := strings.ToLower(strings.TrimSpace(entity))
		if normalized == "" {
			continue
		}
		tokens := strings.Fields(normalized)
		if len(tokens) > m.maxWords {
			m.maxWords = len(tokens)
		}
		m.entities = append(m.entities, preparedEntity{
			text:   normalized,
			tokens: tokens,
			codes:  codesForTokens(tokens),
		})
	}
	return m
}

// MaxWords returns the longest entity length in words, which bounds the
// n-gram window the corrector scans with.
func (m *Matcher) MaxWords() int {
	return m.maxWords
}

// Match returns the best entity for the word (or space-separated phrase),
// its similarity score, and whether any entity cleared its threshold.
// Exact dictionary words match themselves with score 1.
func (m *Matcher) Match(word string) (string, float64, bool) {
	wordLower := strings.ToLower(strings.TrimSpace(word))
	if wordLower == "" {
		return word, 0, false
	}
	wordTokens := strings.Fields(wordLower)
	inputCodes := codesForTokens(wordTokens)

	var (
		bestEntity   string
		bestScore    float64
		bestPhonetic bool
	)
	for _, entity := range m.entities {
		score := bestSimilarity(wordTokens, entity.tokens, wordLower, entity.text)
		if codesOverlap(inputCodes, entity.codes) {
			if score >= phoneticThreshold && (!bestPhonetic || score > bestScore) {
				bestEntity, bestScore, bestPhonetic = entity.text, score, true
			}
		} else if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			bestEntity, bestScore = entity.text, score
		}
	}
	if bestEntity == "" {
		return word, 0, false
	}
	return bestEntity, bestScore, true
}

func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, token := range tokens {
		primary, secondary := matchr.DoubleMetaphone(token)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity takes the highest Jaro-Winkler score across full strings,
// space-stripped strings, and the best token pair.
func bestSimilarity(inputTokens, entityTokens []string, inputFull, entityFull string) float64 {
	score := matchr.JaroWinkler(inputFull, entityFull, false)
	if len(inputTokens) > 1 || len(entityTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(entityTokens, ""), false); s > score {
			score = s
		}
	}
	for _, input := range inputTokens {
		for _, entity := range entityTokens {
			if s := matchr.JaroWinkler(input, entity, false); s > score {
				score = s
			}
		}
	}
	return score
}

package jargon

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipscribe/internal/logging"
	"clipscribe/internal/subtitle"
)

// Tokens shorter than this never enter phonetic matching; Spanish is full
// of two-letter function words that would otherwise collide with terms.
const minPhoneticTokenLen = 3

// Correction records one applied fix for reporting.
type Correction struct {
	Cue       int     `json:"cue"`
	Original  string  `json:"original"`
	Corrected string  `json:"corrected"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
}

// Corrector rewrites transcript cues using the dictionary: literal
// replacements first, then phonetic alignment of unknown tokens against
// the term and nickname lists.
type Corrector struct {
	dict    Dictionary
	matcher *Matcher
	exact   map[string]struct{}
	titler  cases.Caser
	logger  *slog.Logger
}

// NewCorrector builds a corrector. matchThreshold is the fuzzy similarity
// floor (see NewMatcher).
func NewCorrector(dict Dictionary, matchThreshold float64, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = logging.NewNop()
	}
	entities := dict.Entities()
	exact := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		exact[entity] = struct{}{}
	}
	return &Corrector{
		dict:    dict,
		matcher: NewMatcher(entities, matchThreshold),
		exact:   exact,
		titler:  cases.Title(language.Spanish),
		logger:  logging.WithComponent(logger, "jargon"),
	}
}

// CorrectCues returns a corrected copy of the cues plus the list of
// applied corrections. Cue timing is never touched.
func (c *Corrector) CorrectCues(cues []subtitle.Cue) ([]subtitle.Cue, []Correction) {
	out := make([]subtitle.Cue, len(cues))
	var corrections []Correction
	for i, cue := range cues {
		text, cueCorrections := c.correctText(cue.Text, i)
		out[i] = subtitle.Cue{Index: cue.Index, Start: cue.Start, End: cue.End, Text: text}
		corrections = append(corrections, cueCorrections...)
	}
	if len(corrections) > 0 {
		c.logger.Debug("jargon corrections applied", logging.Int("corrections", len(corrections)))
	}
	return out, corrections
}

func (c *Corrector) correctText(text string, cueIndex int) (string, []Correction) {
	var corrections []Correction

	// Stage 1: literal replacements on the whole cue.
	lowered := strings.ToLower(text)
	for from, to := range c.dict.Replacements {
		if !strings.Contains(lowered, from) {
			continue
		}
		replaced := replaceWordBoundary(text, from, to)
		if replaced != text {
			corrections = append(corrections, Correction{
				Cue: cueIndex, Original: from, Corrected: to, Score: 1, Method: "literal",
			})
			text = replaced
			lowered = strings.ToLower(text)
		}
	}

	// Stage 2: phonetic n-gram alignment, longest window first.
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, corrections
	}
	var output []string
	i := 0
	for i < len(tokens) {
		maxN := c.matcher.MaxWords()
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}
		matched := false
		for n := maxN; n >= 1; n-- {
			window := tokens[i : i+n]
			core, prefix, suffix := trimWindow(window)
			if len(core) < minPhoneticTokenLen {
				continue
			}
			if _, known := c.exact[strings.ToLower(core)]; known {
				break
			}
			entity, score, ok := c.matcher.Match(core)
			if !ok || strings.EqualFold(entity, core) {
				continue
			}
			replacement := entity
			if startsUpper(core) {
				replacement = c.titler.String(entity)
			}
			output = append(output, prefix+replacement+suffix)
			corrections = append(corrections, Correction{
				Cue: cueIndex, Original: core, Corrected: entity, Score: score, Method: "phonetic",
			})
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}
	return strings.Join(output, " "), corrections
}

// trimWindow joins the window tokens and splits off leading and trailing
// punctuation so "¡clach!" matches on "clach".
func trimWindow(window []string) (core, prefix, suffix string) {
	runes := []rune(strings.Join(window, " "))
	start := 0
	for start < len(runes) && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[:start]), string(runes[end:])
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// replaceWordBoundary replaces case-insensitive occurrences of from that
// sit on word boundaries.
func replaceWordBoundary(text, from, to string) string {
	lowered := strings.ToLower(text)
	from = strings.ToLower(from)
	var sb strings.Builder
	cursor := 0
	for {
		idx := strings.Index(lowered[cursor:], from)
		if idx < 0 {
			sb.WriteString(text[cursor:])
			return sb.String()
		}
		idx += cursor
		end := idx + len(from)
		if !boundaryAt(lowered, idx-1) || !boundaryAt(lowered, end) {
			sb.WriteString(text[cursor:end])
			cursor = end
			continue
		}
		sb.WriteString(text[cursor:idx])
		sb.WriteString(to)
		cursor = end
	}
}

func boundaryAt(s string, idx int) bool {
	if idx < 0 || idx >= len(s) {
		return true
	}
	r := rune(s[idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && s[idx] < 0x80
}

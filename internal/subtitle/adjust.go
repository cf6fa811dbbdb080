package subtitle

import (
	"sort"
	"strings"
)

// Floor for cue duration after timing adjustments.
const minAdjustedDuration = 0.5

// AdjustTiming rescales and shifts all cue times. speed is a multiplier
// applied before the offset (1.0 leaves timing untouched, 1.02 stretches by
// 2%); offset moves everything by that many seconds. Cues shorter than the
// minimum after adjustment are extended, and negative starts clamp to zero.
func AdjustTiming(cues []Cue, offset, speed float64) []Cue {
	if speed <= 0 {
		speed = 1.0
	}
	out := make([]Cue, len(cues))
	for i, cue := range cues {
		start := cue.Start*speed + offset
		end := cue.End*speed + offset
		if end-start < minAdjustedDuration {
			end = start + minAdjustedDuration
		}
		if start < 0 {
			start = 0
			if end < minAdjustedDuration {
				end = minAdjustedDuration
			}
		}
		out[i] = Cue{Index: cue.Index, Start: start, End: end, Text: cue.Text}
	}
	return out
}

// SplitLongCues breaks cues exceeding maxDuration seconds or maxChars
// characters. Sentence punctuation is the preferred split point, then
// commas, then word counts; the duration is distributed proportionally to
// piece length.
func SplitLongCues(cues []Cue, maxDuration float64, maxChars int) []Cue {
	if maxDuration <= 0 && maxChars <= 0 {
		return append([]Cue(nil), cues...)
	}
	var out []Cue
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		tooLong := (maxDuration > 0 && cue.Duration() > maxDuration) ||
			(maxChars > 0 && len(text) > maxChars)
		if !tooLong {
			out = append(out, cue)
			continue
		}
		pieces := splitPieces(text, maxChars)
		if len(pieces) <= 1 {
			out = append(out, cue)
			continue
		}
		total := 0
		for _, piece := range pieces {
			total += len(piece)
		}
		cursor := cue.Start
		for _, piece := range pieces {
			share := cue.Duration() * float64(len(piece)) / float64(total)
			out = append(out, Cue{Start: cursor, End: cursor + share, Text: piece})
			cursor += share
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func splitPieces(text string, maxChars int) []string {
	pieces := splitAfterAny(text, ".!?")
	if len(pieces) <= 1 {
		pieces = splitAfterAny(text, ",")
	}
	if len(pieces) <= 1 && maxChars > 0 && len(text) > maxChars {
		pieces = splitByWords(text, maxChars)
	}
	return pieces
}

func splitAfterAny(text, punctuation string) []string {
	var pieces []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		if strings.ContainsAny(word, punctuation) {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

func splitByWords(text string, maxChars int) []string {
	var pieces []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

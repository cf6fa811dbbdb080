package multipass

import (
	"strings"
)

// DefaultMaxChunkWords caps cue length for short-form video overlays.
const DefaultMaxChunkWords = 3

var preferredBreaks = []string{".", "!", "?"}

// Chunk splits merged segments into short cues of at most maxWords words.
// Word level timings drive the cue boundaries when the decoder produced
// them; otherwise the segment duration is divided evenly across the chunks.
func Chunk(segments []Segment, maxWords int) []Segment {
	if maxWords <= 0 {
		maxWords = DefaultMaxChunkWords
	}

	var out []Segment
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if len(seg.Words) > 0 {
			out = append(out, chunkByWords(seg, maxWords)...)
			continue
		}
		out = append(out, chunkByTime(seg, text, maxWords)...)
	}
	return out
}

func chunkByWords(seg Segment, maxWords int) []Segment {
	var chunks []Segment
	for start := 0; start < len(seg.Words); start += maxWords {
		end := start + maxWords
		if end > len(seg.Words) {
			end = len(seg.Words)
		}
		words := seg.Words[start:end]
		parts := make([]string, 0, len(words))
		for _, word := range words {
			if trimmed := strings.TrimSpace(word.Word); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) == 0 {
			continue
		}
		chunks = append(chunks, Segment{
			Text:       strings.Join(parts, " "),
			Start:      words[0].Start,
			End:        words[len(words)-1].End,
			Confidence: seg.Confidence,
			Pass:       seg.Pass,
		})
	}
	return chunks
}

func chunkByTime(seg Segment, text string, maxWords int) []Segment {
	pieces := splitText(text, maxWords)
	if len(pieces) == 0 {
		return nil
	}
	perChunk := seg.Duration() / float64(len(pieces))
	chunks := make([]Segment, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Segment{
			Text:       piece,
			Start:      seg.Start + float64(i)*perChunk,
			End:        seg.Start + float64(i+1)*perChunk,
			Confidence: seg.Confidence,
			Pass:       seg.Pass,
		})
	}
	return chunks
}

// splitText packs words into chunks of at most maxWords, breaking early at
// sentence punctuation so cues do not straddle sentence boundaries.
func splitText(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return []string{strings.Join(words, " ")}
	}

	var chunks []string
	var current []string
	for _, word := range words {
		current = append(current, word)
		if len(current) >= maxWords || endsWithBreak(word) {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func endsWithBreak(word string) bool {
	for _, punct := range preferredBreaks {
		if strings.Contains(word, punct) {
			return true
		}
	}
	return false
}

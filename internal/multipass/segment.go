package multipass

import (
	"strings"

	"clipscribe/internal/services/whisper"
)

// Segment is one stretch of transcribed speech tagged with the pass that
// produced it and a combined confidence score.
type Segment struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
	Pass       string
	Words      []whisper.Word
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

func (s Segment) overlaps(other Segment) bool {
	return max64(s.Start, other.Start) < min64(s.End, other.End)
}

// Confidence combines the decoder's average log probability with the
// no-speech probability. Log probabilities typically land in [-3, 0]; the
// normalized value dominates at 70% with the speech likelihood filling the
// remaining 30%.
func Confidence(avgLogProb, noSpeechProb float64) float64 {
	logProbScore := (avgLogProb + 3.0) / 3.0
	if logProbScore < 0 {
		logProbScore = 0
	}
	speechScore := 1.0 - noSpeechProb
	confidence := logProbScore*0.7 + speechScore*0.3
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// FromWhisper converts decoder output into scored segments. Empty segments
// are dropped.
func FromWhisper(pass string, segments []whisper.Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out = append(out, Segment{
			Text:       text,
			Start:      seg.Start,
			End:        seg.End,
			Confidence: Confidence(seg.AvgLogProb, seg.NoSpeechProb),
			Pass:       pass,
			Words:      seg.Words,
		})
	}
	return out
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

package subtitle

import "fmt"

// Tolerance before a subtitle track is considered misaligned with its
// video.
const durationMismatchTolerance = 5.0

// Validate checks a cue track for structural issues. It returns a list of
// findings; an empty list means the track passed. videoSeconds of 0 skips
// the duration alignment check.
func Validate(cues []Cue, videoSeconds float64) []string {
	var issues []string
	if len(cues) == 0 {
		return []string{"empty_subtitle_track"}
	}

	var last float64
	for i, cue := range cues {
		if cue.End <= cue.Start {
			issues = append(issues, fmt.Sprintf("non_positive_duration: cue %d", i+1))
		}
		if cue.Start < last {
			issues = append(issues, fmt.Sprintf("overlapping_cues: cue %d starts before cue %d ends", i+1, i))
		}
		if cue.End > last {
			last = cue.End
		}
		if cue.Text == "" {
			issues = append(issues, fmt.Sprintf("empty_text: cue %d", i+1))
		}
	}

	if videoSeconds > 0 && last > videoSeconds+durationMismatchTolerance {
		issues = append(issues, fmt.Sprintf("duration_mismatch: subtitles end %.1fs after video", last-videoSeconds))
	}
	return issues
}

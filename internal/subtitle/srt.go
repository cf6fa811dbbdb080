package subtitle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Cue is one subtitle entry.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns the cue length in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
// Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", whole/3600, (whole/60)%60, whole%60, millis)
}

// ParseTimestamp converts an SRT timestamp to seconds. Periods are accepted
// in place of the standard comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Render produces the SRT document for the cues. Indices are renumbered
// sequentially from 1.
func Render(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			strings.TrimSpace(cue.Text))
	}
	return sb.String()
}

// Parse decodes an SRT document. Malformed blocks are skipped rather than
// failing the whole file; transcription output occasionally carries stray
// blocks and the validator reports on the result separately.
func Parse(content string) []Cue {
	blocks := strings.Split(strings.ReplaceAll(strings.TrimSpace(content), "\r\n", "\n"), "\n\n")
	var cues []Cue
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		timeParts := strings.Split(lines[1], "-->")
		if len(timeParts) != 2 {
			continue
		}
		start, errStart := ParseTimestamp(timeParts[0])
		end, errEnd := ParseTimestamp(timeParts[1])
		if errStart != nil || errEnd != nil {
			continue
		}
		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues
}

// ReadFile parses an SRT file from disk.
func ReadFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return Parse(string(data)), nil
}

// WriteFile renders the cues to an SRT file.
func WriteFile(path string, cues []Cue) error {
	if err := os.WriteFile(path, []byte(Render(cues)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// PlainText joins cue texts into a single transcript line.
func PlainText(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		if text := strings.TrimSpace(cue.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

package subtitle

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestTimestampRoundTrip(t *testing.T) {
	cases := []struct {
		seconds float64
		text    string
	}{
		{0, "00:00:00,000"},
		{83.456, "00:01:23,456"},
		{3723.5, "01:02:03,500"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.text {
			t.Fatalf("FormatTimestamp(%v) = %s, want %s", tc.seconds, got, tc.text)
		}
		parsed, err := ParseTimestamp(tc.text)
		if err != nil {
			t.Fatalf("ParseTimestamp(%s): %v", tc.text, err)
		}
		if math.Abs(parsed-tc.seconds) > 1e-9 {
			t.Fatalf("ParseTimestamp(%s) = %v, want %v", tc.text, parsed, tc.seconds)
		}
	}
	if got := FormatTimestamp(-1); got != "00:00:00,000" {
		t.Fatalf("negative timestamps should clamp, got %s", got)
	}
	if _, err := ParseTimestamp("1:2"); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestRenderAndParse(t *testing.T) {
	cues := []Cue{
		{Start: 0.5, End: 1.8, Text: "che boludo"},
		{Start: 2.0, End: 3.1, Text: "que clutch"},
	}
	document := Render(cues)
	parsed := Parse(document)
	if len(parsed) != 2 {
		t.Fatalf("expected 2 cues, got %+v", parsed)
	}
	if parsed[0].Text != "che boludo" || parsed[1].Index != 2 {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
	if math.Abs(parsed[1].Start-2.0) > 1e-3 {
		t.Fatalf("unexpected start: %v", parsed[1].Start)
	}
}

func TestParseSkipsMalformedBlocks(t *testing.T) {
	document := "1\n00:00:00,000 --> 00:00:01,000\nok\n\nnot a block\n\n2\nbroken times\ntext\n"
	parsed := Parse(document)
	if len(parsed) != 1 || parsed[0].Text != "ok" {
		t.Fatalf("expected only the valid cue, got %+v", parsed)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	cues := []Cue{{Start: 1, End: 2, Text: "hola"}}
	if err := WriteFile(path, cues); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	read, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(read) != 1 || read[0].Text != "hola" {
		t.Fatalf("unexpected cues: %+v", read)
	}
}

func TestValidateFindsIssues(t *testing.T) {
	issues := Validate(nil, 0)
	if len(issues) != 1 || issues[0] != "empty_subtitle_track" {
		t.Fatalf("unexpected issues: %v", issues)
	}

	cues := []Cue{
		{Start: 0, End: 1, Text: "a"},
		{Start: 0.5, End: 0.4, Text: ""},
		{Start: 100, End: 120, Text: "late"},
	}
	issues = Validate(cues, 60)
	joined := strings.Join(issues, ";")
	for _, want := range []string{"non_positive_duration", "overlapping_cues", "empty_text", "duration_mismatch"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %s in %v", want, issues)
		}
	}

	if issues := Validate([]Cue{{Start: 0, End: 1, Text: "ok"}}, 10); len(issues) != 0 {
		t.Fatalf("expected clean validation, got %v", issues)
	}
}

func TestAdjustTimingOffsetAndSpeed(t *testing.T) {
	cues := []Cue{{Start: 10, End: 12, Text: "a"}}
	adjusted := AdjustTiming(cues, 0.5, 1.1)
	if math.Abs(adjusted[0].Start-11.5) > 1e-9 || math.Abs(adjusted[0].End-13.7) > 1e-9 {
		t.Fatalf("unexpected timing: %+v", adjusted[0])
	}

	adjusted = AdjustTiming([]Cue{{Start: 0.1, End: 0.2, Text: "b"}}, -1, 1)
	if adjusted[0].Start != 0 || adjusted[0].End < minAdjustedDuration {
		t.Fatalf("expected clamp and minimum duration: %+v", adjusted[0])
	}
}

func TestSplitLongCues(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 8, Text: "primera frase. segunda frase mucho mas larga!"},
		{Start: 10, End: 11, Text: "corta"},
	}
	split := SplitLongCues(cues, 3, 80)
	if len(split) != 3 {
		t.Fatalf("expected 3 cues, got %+v", split)
	}
	if split[0].Text != "primera frase." {
		t.Fatalf("unexpected first piece: %+v", split[0])
	}
	if math.Abs(split[1].End-8) > 1e-9 {
		t.Fatalf("pieces should span the original window: %+v", split[1])
	}
	if split[2].Text != "corta" {
		t.Fatalf("short cue should pass through: %+v", split[2])
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText([]Cue{{Text: " hola "}, {Text: ""}, {Text: "che"}})
	if got != "hola che" {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

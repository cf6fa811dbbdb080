package jargon

import (
	"os"
	"path/filepath"
	"testing"

	"clipscribe/internal/subtitle"
)

func TestLoadDictionaryMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	content := `
terms:
  - wallbang
nicknames:
  - tuco
replacements:
  "uol bang": wallbang
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dict: %v", err)
	}
	dict, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	entities := dict.Entities()
	for _, want := range []string{"clutch", "wallbang", "tuco", "estani"} {
		found := false
		for _, entity := range entities {
			if entity == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q in entities %v", want, entities)
		}
	}
	if dict.Replacements["uol bang"] != "wallbang" {
		t.Fatalf("user replacement missing: %v", dict.Replacements)
	}
	if dict.Replacements["head shot"] != "headshot" {
		t.Fatalf("default replacement lost: %v", dict.Replacements)
	}
}

func TestLoadDictionaryEmptyPathReturnsDefaults(t *testing.T) {
	dict, err := LoadDictionary("")
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	if len(dict.Terms) == 0 || len(dict.Nicknames) == 0 {
		t.Fatalf("defaults should not be empty: %+v", dict)
	}
}

func TestMatcherExactAndClose(t *testing.T) {
	matcher := NewMatcher([]string{"estani", "headshot"}, 0.82)
	entity, score, ok := matcher.Match("estanis")
	if !ok || entity != "estani" {
		t.Fatalf("expected phonetic match, got %q ok=%v", entity, ok)
	}
	if score < 0.8 {
		t.Fatalf("unexpectedly low score: %v", score)
	}
	if _, _, ok := matcher.Match("zzzzqqq"); ok {
		t.Fatal("expected no match for unrelated input")
	}
	if _, _, ok := matcher.Match(""); ok {
		t.Fatal("expected no match for empty input")
	}
}

func TestCorrectCuesAppliesLiteralReplacements(t *testing.T) {
	corrector := NewCorrector(DefaultDictionary(), 0.82, nil)
	cues := []subtitle.Cue{{Start: 0, End: 1, Text: "que head shot increible"}}
	corrected, corrections := corrector.CorrectCues(cues)
	if corrected[0].Text != "que headshot increible" {
		t.Fatalf("unexpected text: %q", corrected[0].Text)
	}
	if len(corrections) == 0 || corrections[0].Method != "literal" {
		t.Fatalf("expected literal correction, got %+v", corrections)
	}
}

func TestCorrectCuesFixesNicknamePhonetically(t *testing.T) {
	corrector := NewCorrector(DefaultDictionary(), 0.82, nil)
	cues := []subtitle.Cue{{Start: 0, End: 1, Text: "mira a Estanis ahi"}}
	corrected, corrections := corrector.CorrectCues(cues)
	if corrected[0].Text != "mira a Estani ahi" {
		t.Fatalf("unexpected text: %q", corrected[0].Text)
	}
	found := false
	for _, correction := range corrections {
		if correction.Method == "phonetic" && correction.Corrected == "estani" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected phonetic correction, got %+v", corrections)
	}
}

func TestCorrectCuesPreservesPunctuation(t *testing.T) {
	corrector := NewCorrector(DefaultDictionary(), 0.82, nil)
	cues := []subtitle.Cue{{Start: 0, End: 1, Text: "¡estanis!"}}
	corrected, _ := corrector.CorrectCues(cues)
	if corrected[0].Text != "¡estani!" {
		t.Fatalf("unexpected text: %q", corrected[0].Text)
	}
}

func TestCorrectCuesLeavesKnownTermsAlone(t *testing.T) {
	corrector := NewCorrector(DefaultDictionary(), 0.82, nil)
	cues := []subtitle.Cue{{Start: 0, End: 1, Text: "clutch posta"}}
	corrected, corrections := corrector.CorrectCues(cues)
	if corrected[0].Text != "clutch posta" {
		t.Fatalf("text should be unchanged: %q", corrected[0].Text)
	}
	if len(corrections) != 0 {
		t.Fatalf("expected no corrections, got %+v", corrections)
	}
}

func TestCorrectCuesKeepsTiming(t *testing.T) {
	corrector := NewCorrector(DefaultDictionary(), 0.82, nil)
	cues := []subtitle.Cue{{Index: 7, Start: 1.5, End: 2.5, Text: "head shot"}}
	corrected, _ := corrector.CorrectCues(cues)
	if corrected[0].Start != 1.5 || corrected[0].End != 2.5 || corrected[0].Index != 7 {
		t.Fatalf("timing must be preserved: %+v", corrected[0])
	}
}

package jargon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary holds the vocabulary the corrector aligns transcripts
// against.
type Dictionary struct {
	// Terms are gaming expressions the decoder tends to mangle.
	Terms []string `yaml:"terms"`
	// Nicknames are player names, matched like terms but reported
	// separately.
	Nicknames []string `yaml:"nicknames"`
	// Replacements are literal fixes applied before phonetic matching.
	// Keys are matched case-insensitively on word boundaries.
	Replacements map[string]string `yaml:"replacements"`
}

// DefaultDictionary covers the squad's recurring vocabulary. A user
// dictionary file extends rather than replaces it.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Terms: []string{
			"clutch", "lag", "gank", "headshot", "rekt", "gg",
			"boludo", "posta", "zafar", "guita", "hinchar",
		},
		Nicknames: []string{
			"adriel", "gabriel", "estani", "wilo", "corcho", "ruben", "erizo",
		},
		Replacements: map[string]string{
			"head shot": "headshot",
			"lak":       "lag",
			"ge ge":     "gg",
		},
	}
}

// LoadDictionary reads a YAML dictionary file and merges it over the
// defaults. An empty path returns the defaults unchanged.
func LoadDictionary(path string) (Dictionary, error) {
	dict := DefaultDictionary()
	path = strings.TrimSpace(path)
	if path == "" {
		return dict, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("load jargon dictionary: %w", err)
	}
	var user Dictionary
	if err := yaml.Unmarshal(data, &user); err != nil {
		return Dictionary{}, fmt.Errorf("parse jargon dictionary %s: %w", path, err)
	}
	dict.Terms = mergeLists(dict.Terms, user.Terms)
	dict.Nicknames = mergeLists(dict.Nicknames, user.Nicknames)
	if dict.Replacements == nil {
		dict.Replacements = map[string]string{}
	}
	for from, to := range user.Replacements {
		dict.Replacements[strings.ToLower(from)] = to
	}
	return dict, nil
}

// Entities returns every matchable entry (terms plus nicknames).
func (d Dictionary) Entities() []string {
	out := make([]string, 0, len(d.Terms)+len(d.Nicknames))
	out = append(out, d.Terms...)
	out = append(out, d.Nicknames...)
	return out
}

func mergeLists(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, entry := range list {
			normalized := strings.ToLower(strings.TrimSpace(entry))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, normalized)
		}
	}
	return out
}

// Package jargon fixes transcription mistakes on Argentine gaming
// vocabulary and player nicknames. A YAML dictionary supplies literal
// replacements plus the term list a Double Metaphone / Jaro-Winkler
// matcher aligns unknown words against.
package jargon

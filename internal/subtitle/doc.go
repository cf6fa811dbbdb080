// Package subtitle reads, writes, and repairs SRT cue tracks: rendering
// and parsing, structural validation, timing adjustment, and splitting of
// overlong cues.
package subtitle

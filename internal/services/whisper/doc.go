// Package whisper wraps the faster-whisper CLI. It builds per-pass argument
// vectors from decoding options and parses the JSON output into segments
// with word timing and confidence signals.
package whisper

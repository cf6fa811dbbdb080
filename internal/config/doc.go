// Package config loads, normalizes, and validates the TOML configuration
// for the transcription pipeline, including the named CLI profiles that
// overlay whisper/VAD/multipass presets onto a base configuration.
package config

// Package extraction implements the first workflow stage: source validation
// via ffprobe and 16 kHz mono WAV extraction via ffmpeg.
package extraction

// Package audio extracts and decodes the mono 16kHz PCM track the
// transcription pipeline operates on. Extraction shells out to ffmpeg; the
// WAV reader handles only the layout the extractor produces.
package audio

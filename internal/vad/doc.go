// Package vad locates speech in gameplay audio before transcription.
//
// Three detectors contribute spans: an adaptive energy gate, the WebRTC
// frame classifier, and an optional external silero-vad helper. The engine
// fuses overlapping spans with weighted voting, then filters out
// sub-threshold blips and bridges short silences so rapid gaming chatter
// survives as contiguous spans.
package vad

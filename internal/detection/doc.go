// Package detection implements the speech detection workflow stage: it runs
// the hybrid VAD engine over the extracted audio and persists the fused
// spans on the queue item for the transcription stage.
package detection

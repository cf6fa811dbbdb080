// Package workflow orchestrates queue items through the transcription
// pipeline: audio extraction, speech detection, multipass transcription,
// jargon correction, and rendering. A single worker loop claims the oldest
// ready item, runs its next stage under a heartbeat, and persists every
// status transition so interrupted runs resume from the last checkpoint.
package workflow

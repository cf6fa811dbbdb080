// Package transcription implements the whisper workflow stage: it runs the
// configured multipass schedule over the extracted audio, merges the passes,
// and writes the draft subtitle track plus a stats artifact for reporting.
package transcription

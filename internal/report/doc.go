// Package report renders per-file transcription results and batch summaries
// as JSON, plus a plain-text journal with one SUCCESS/ERROR line per file.
package report

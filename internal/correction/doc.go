// Package correction implements the jargon workflow stage: it rewrites the
// draft subtitles using the Argentine gaming dictionary and records the
// applied corrections for the final report.
package correction

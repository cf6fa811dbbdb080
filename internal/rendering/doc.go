// Package rendering implements the final workflow stage: subtitle
// validation, publication of the SRT/transcript/report artifacts into the
// output directory, and learning session capture.
package rendering

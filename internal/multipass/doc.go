// Package multipass transcribes the same audio several times with
// different decoding trade-offs and merges the results.
//
// A conservative pass anchors precision, aggressive passes recover quiet
// or rapid speech, a micro pass targets sub-second exclamations, and a
// noise robust pass handles speech under game audio. Overlapping outputs
// are resolved by a specialization ladder, long silences are backfilled
// from rejected candidates, and the winners are chunked into short cues.
package multipass

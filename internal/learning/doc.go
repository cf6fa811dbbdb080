// Package learning records per-run quality metrics in SQLite and adapts VAD
// parameters per user over time.
//
// Each completed transcription contributes a Session scored from
// transcription quality, VAD accuracy, processing speed, and context
// confidence. Sessions fold into a Profile via exponential moving averages;
// only high-scoring sessions inform the optimal parameter estimates. A
// periodic grid search replays the session history against candidate
// configurations and promotes the winner when the improvement is
// significant.
package learning

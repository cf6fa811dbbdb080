// Package logging wires log/slog with the handlers and attribute helpers
// used throughout the pipeline: a console handler that renders job/stage
// subjects, a JSON handler for machine consumption, a fanout handler for
// mirroring a job's log into its per-run file, and log retention pruning.
package logging

package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat records that the item's current stage is still alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing rolls back items stuck in a processing status whose
// heartbeat is older than the cutoff, returning them to the completed status
// of the previous stage. Returns the number of items reclaimed.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := cutoff.UTC().Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items SET status = ?, last_heartbeat = NULL, run_token = NULL,
                progress_message = 'Reclaimed after stale heartbeat', updated_at = ?
            WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
			string(transition.to), now, string(transition.from), stamp,
		)
		if err != nil {
			return total, fmt.Errorf("reclaim %s items: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// ResetStuckProcessing rolls back every item currently in a processing
// status regardless of heartbeat age. Used at daemon startup so work
// interrupted by a crash is retried.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items SET status = ?, last_heartbeat = NULL, run_token = NULL,
                progress_message = 'Reset after interrupted run', updated_at = ?
            WHERE status = ?`,
			string(transition.to), now, string(transition.from),
		)
		if err != nil {
			return total, fmt.Errorf("reset %s items: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// Stats returns the number of items per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue counts into a summary.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}

	var summary HealthSummary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusCompleted:
			summary.Completed += count
		case IsProcessingStatus(status):
			summary.Processing += count
		default:
			summary.Pending += count
		}
	}
	return summary, nil
}

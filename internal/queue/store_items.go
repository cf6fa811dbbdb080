package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, source_path, title, status, profile, media_info_json, audio_file, subtitle_file, transcript_file, report_file, item_log_path, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, speech_spans_json, run_token, last_heartbeat, needs_review, review_reason"

// NewFile enqueues a video file for transcription.
func (s *Store) NewFile(ctx context.Context, sourcePath, profile string) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            source_path, title, status, profile, created_at, updated_at, progress_percent
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		inferTitleFromPath(sourcePath),
		StatusPending,
		nullableString(profile),
		timestamp,
		timestamp,
		0.0,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. Missing items return nil
// without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindBySourcePath returns the most recent item for a source file.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_path = ? ORDER BY id DESC LIMIT 1`,
		sourcePath,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source path: %w", err)
	}
	return item, nil
}

// ErrStaleClaim is returned when a write is rejected because another worker
// stamped a different run token on the item.
var ErrStaleClaim = errors.New("queue item claimed by another worker")

// Claim atomically moves an item into a processing status, stamping a fresh
// run token. The conditional status check means exactly one caller wins when
// a daemon and a one-shot run race for the same item; losers get false.
func (s *Store) Claim(ctx context.Context, item *Item, processing Status, runToken string) (bool, error) {
	if item == nil {
		return false, errors.New("item is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET
            status = ?, run_token = ?, last_heartbeat = ?, error_message = NULL,
            progress_stage = ?, progress_percent = 0, progress_message = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(processing),
		runToken,
		timestamp,
		nullableString(item.ProgressStage),
		nullableString(item.ProgressMessage),
		timestamp,
		item.ID,
		string(item.Status),
	)
	if err != nil {
		return false, fmt.Errorf("claim item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	item.Status = processing
	item.RunToken = runToken
	item.claimedToken = runToken
	item.LastHeartbeat = &now
	item.ErrorMessage = ""
	item.ProgressPercent = 0
	item.UpdatedAt = now
	return true, nil
}

// Update persists changes to an existing queue item. Items carrying a run
// token only write while that token (or none) is still on the row; a
// mismatch means another worker reclaimed the item and returns ErrStaleClaim.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()

	query := `UPDATE queue_items SET
            source_path = ?, title = ?, status = ?, profile = ?,
            media_info_json = ?, audio_file = ?, subtitle_file = ?,
            transcript_file = ?, report_file = ?, item_log_path = ?,
            error_message = ?, updated_at = ?, progress_stage = ?,
            progress_percent = ?, progress_message = ?, speech_spans_json = ?,
            run_token = ?, last_heartbeat = ?, needs_review = ?, review_reason = ?
        WHERE id = ?`
	args := []any{
		nullableString(item.SourcePath),
		nullableString(item.Title),
		string(item.Status),
		nullableString(item.Profile),
		nullableString(item.MediaInfoJSON),
		nullableString(item.AudioFile),
		nullableString(item.SubtitleFile),
		nullableString(item.TranscriptFile),
		nullableString(item.ReportFile),
		nullableString(item.ItemLogPath),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableString(item.SpeechSpansJSON),
		nullableString(item.RunToken),
		nullableTime(item.LastHeartbeat),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		item.ID,
	}
	guarded := item.claimedToken != ""
	if guarded {
		query += ` AND run_token = ?`
		args = append(args, item.claimedToken)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if guarded {
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return ErrStaleClaim
		}
	}
	item.claimedToken = item.RunToken
	return nil
}

// ItemsByStatus lists all items in a given status ordered by id.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	return s.List(ctx, status)
}

// List returns items filtered by the provided statuses, or every item when
// no filter is given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided
// statuses, or nil when none exist.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` +
		makePlaceholders(len(statuses)) + `) ORDER BY id LIMIT 1`
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next for statuses: %w", err)
	}
	return item, nil
}

// Remove deletes an item by id.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed resets failed items back to pending. Without ids every
// failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE queue_items SET status = ?, error_message = NULL, progress_stage = NULL,
        progress_percent = 0, progress_message = NULL, needs_review = 0, review_reason = NULL,
        updated_at = ? WHERE status = ?`
	args := []any{string(StatusPending), timestamp, string(StatusFailed)}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every item and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed items and returns the number deleted.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, string(StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed items and returns the number deleted.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, string(StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

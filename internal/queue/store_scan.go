package queue

import (
	"database/sql"
	"strings"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item            Item
		status          string
		profile         sql.NullString
		sourcePath      sql.NullString
		title           sql.NullString
		mediaInfo       sql.NullString
		audioFile       sql.NullString
		subtitleFile    sql.NullString
		transcriptFile  sql.NullString
		reportFile      sql.NullString
		itemLogPath     sql.NullString
		errorMessage    sql.NullString
		createdAt       string
		updatedAt       string
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		speechSpans     sql.NullString
		runToken        sql.NullString
		lastHeartbeat   sql.NullString
		needsReview     sql.NullInt64
		reviewReason    sql.NullString
	)

	if err := row.Scan(
		&item.ID,
		&sourcePath,
		&title,
		&status,
		&profile,
		&mediaInfo,
		&audioFile,
		&subtitleFile,
		&transcriptFile,
		&reportFile,
		&itemLogPath,
		&errorMessage,
		&createdAt,
		&updatedAt,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&speechSpans,
		&runToken,
		&lastHeartbeat,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item.SourcePath = sourcePath.String
	item.Title = title.String
	item.Status = Status(status)
	item.Profile = profile.String
	item.MediaInfoJSON = mediaInfo.String
	item.AudioFile = audioFile.String
	item.SubtitleFile = subtitleFile.String
	item.TranscriptFile = transcriptFile.String
	item.ReportFile = reportFile.String
	item.ItemLogPath = itemLogPath.String
	item.ErrorMessage = errorMessage.String
	item.CreatedAt = parseTimeString(createdAt)
	item.UpdatedAt = parseTimeString(updatedAt)
	item.ProgressStage = progressStage.String
	item.ProgressPercent = progressPercent.Float64
	item.ProgressMessage = progressMessage.String
	item.SpeechSpansJSON = speechSpans.String
	item.RunToken = runToken.String
	item.claimedToken = runToken.String
	if lastHeartbeat.Valid && strings.TrimSpace(lastHeartbeat.String) != "" {
		parsed := parseTimeString(lastHeartbeat.String)
		item.LastHeartbeat = &parsed
	}
	item.NeedsReview = needsReview.Int64 != 0
	item.ReviewReason = reviewReason.String

	return &item, nil
}

func parseTimeString(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

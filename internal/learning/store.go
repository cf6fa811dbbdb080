package learning

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the learning database was created by a
// different version.
var ErrSchemaMismatch = errors.New("learning schema version mismatch")

// Store persists learning sessions and user profiles in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	alpha  float64
	logger *slog.Logger
}

// Open connects to the learning database configured under [paths].
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	path := strings.TrimSpace(cfg.Paths.LearningDB)
	if path == "" {
		return nil, errors.New("learning database path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure learning db dir: %w", err)
	}
	return OpenPath(path, cfg.Learning.Alpha, logger)
}

// OpenPath connects to a learning database at an explicit location.
func OpenPath(path string, alpha float64, logger *slog.Logger) (*Store, error) {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.1
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open learning db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		alpha:  alpha,
		logger: logging.WithComponent(logger, "learning"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check learning schema: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create learning schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record learning schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read learning schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordSession scores a session, persists it, and folds it into the user's
// profile. The session's OverallScore and SessionID are filled in.
func (s *Store) RecordSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	if strings.TrimSpace(session.UserID) == "" {
		session.UserID = "default"
	}
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.OverallScore = Score(*session)

	paramsJSON, err := json.Marshal(session.VADParameters)
	if err != nil {
		return fmt.Errorf("encode vad parameters: %w", err)
	}

	var rating any
	if session.QualityRating != nil {
		rating = *session.QualityRating
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            session_id, user_id, profile, created_at,
            transcription_quality, vad_accuracy, processing_seconds,
            context_confidence, quality_rating, vad_parameters_json, overall_score
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID,
		session.UserID,
		session.Profile,
		session.CreatedAt.Format(time.RFC3339Nano),
		session.TranscriptionQuality,
		session.VADAccuracy,
		session.ProcessingSeconds,
		session.ContextConfidence,
		rating,
		string(paramsJSON),
		session.OverallScore,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	session.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := s.updateProfile(ctx, session); err != nil {
		return err
	}

	s.logger.Debug("learning session recorded",
		logging.String(logging.FieldUser, session.UserID),
		logging.Float64("overall_score", session.OverallScore),
	)
	return nil
}

// RecentSessions returns up to limit sessions for a user, newest first.
func (s *Store) RecentSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_id, profile, created_at,
            transcription_quality, vad_accuracy, processing_seconds,
            context_confidence, quality_rating, vad_parameters_json, overall_score
        FROM sessions WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session    Session
			profile    sql.NullString
			createdAt  string
			rating     sql.NullFloat64
			paramsJSON sql.NullString
		)
		if err := rows.Scan(
			&session.ID, &session.SessionID, &session.UserID, &profile, &createdAt,
			&session.TranscriptionQuality, &session.VADAccuracy, &session.ProcessingSeconds,
			&session.ContextConfidence, &rating, &paramsJSON, &session.OverallScore,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.Profile = profile.String
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			session.CreatedAt = parsed
		}
		if rating.Valid {
			value := rating.Float64
			session.QualityRating = &value
		}
		if paramsJSON.Valid && paramsJSON.String != "" {
			_ = json.Unmarshal([]byte(paramsJSON.String), &session.VADParameters)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetProfile loads a user profile, returning nil when the user is unknown.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, created_at, updated_at, total_sessions,
            context_preferences_json, optimal_vad_json, improvement_rate, satisfaction_score
        FROM profiles WHERE user_id = ?`, userID)

	var (
		profile     Profile
		createdAt   string
		updatedAt   string
		prefsJSON   sql.NullString
		optimalJSON sql.NullString
	)
	err := row.Scan(
		&profile.UserID, &createdAt, &updatedAt, &profile.TotalSessions,
		&prefsJSON, &optimalJSON, &profile.ImprovementRate, &profile.SatisfactionScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		profile.CreatedAt = parsed
	}
	if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		profile.UpdatedAt = parsed
	}
	profile.ContextPreferences = map[string]float64{}
	profile.OptimalVADParameters = map[string]float64{}
	if prefsJSON.Valid && prefsJSON.String != "" {
		_ = json.Unmarshal([]byte(prefsJSON.String), &profile.ContextPreferences)
	}
	if optimalJSON.Valid && optimalJSON.String != "" {
		_ = json.Unmarshal([]byte(optimalJSON.String), &profile.OptimalVADParameters)
	}
	return &profile, nil
}

func (s *Store) saveProfile(ctx context.Context, profile *Profile) error {
	prefsJSON, err := json.Marshal(profile.ContextPreferences)
	if err != nil {
		return fmt.Errorf("encode context preferences: %w", err)
	}
	optimalJSON, err := json.Marshal(profile.OptimalVADParameters)
	if err != nil {
		return fmt.Errorf("encode optimal parameters: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (
            user_id, created_at, updated_at, total_sessions,
            context_preferences_json, optimal_vad_json, improvement_rate, satisfaction_score
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            updated_at = excluded.updated_at,
            total_sessions = excluded.total_sessions,
            context_preferences_json = excluded.context_preferences_json,
            optimal_vad_json = excluded.optimal_vad_json,
            improvement_rate = excluded.improvement_rate,
            satisfaction_score = excluded.satisfaction_score`,
		profile.UserID,
		profile.CreatedAt.Format(time.RFC3339Nano),
		profile.UpdatedAt.Format(time.RFC3339Nano),
		profile.TotalSessions,
		string(prefsJSON),
		string(optimalJSON),
		profile.ImprovementRate,
		profile.SatisfactionScore,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Store) updateProfile(ctx context.Context, session *Session) error {
	profile, err := s.GetProfile(ctx, session.UserID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if profile == nil {
		profile = &Profile{
			UserID:               session.UserID,
			CreatedAt:            now,
			ContextPreferences:   map[string]float64{},
			OptimalVADParameters: map[string]float64{},
			SatisfactionScore:    0.5,
		}
	}

	contextKey := session.Profile
	if contextKey == "" {
		contextKey = "default"
	}
	current, ok := profile.ContextPreferences[contextKey]
	if !ok {
		current = 0.5
	}
	profile.ContextPreferences[contextKey] = (1-s.alpha)*current + s.alpha*session.OverallScore

	// Only high-scoring sessions inform the optimal parameter estimates.
	if session.OverallScore > 0.7 {
		for param, value := range session.VADParameters {
			existing, ok := profile.OptimalVADParameters[param]
			if !ok {
				profile.OptimalVADParameters[param] = value
				continue
			}
			weight := session.OverallScore
			profile.OptimalVADParameters[param] = (1-weight)*existing + weight*value
		}
	}

	profile.TotalSessions++
	profile.UpdatedAt = now

	recent, err := s.RecentSessions(ctx, session.UserID, 10)
	if err != nil {
		return err
	}
	if len(recent) >= 2 {
		// recent is newest first
		newest := recent[0].OverallScore
		oldest := recent[len(recent)-1].OverallScore
		profile.ImprovementRate = (newest - oldest) / float64(len(recent))
	}

	if session.QualityRating != nil {
		profile.SatisfactionScore = 0.8*profile.SatisfactionScore + 0.2*(*session.QualityRating)
	}

	return s.saveProfile(ctx, profile)
}

// SessionCount returns the number of recorded sessions for a user.
func (s *Store) SessionCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

package learning

import (
	"time"
)

// Scoring weights for the overall session score.
const (
	weightQuality     = 0.4
	weightVADAccuracy = 0.3
	weightSpeed       = 0.15
	weightContext     = 0.15

	// Processing time is normalized against this many seconds; anything
	// slower scores zero on the speed axis.
	speedNormalizationSeconds = 60.0
)

// Session captures the measurable outcome of one transcription run.
type Session struct {
	ID        int64
	SessionID string
	UserID    string
	Profile   string
	CreatedAt time.Time

	TranscriptionQuality float64
	VADAccuracy          float64
	ProcessingSeconds    float64
	ContextConfidence    float64

	// QualityRating is an optional explicit user rating in [0,1].
	QualityRating *float64

	VADParameters map[string]float64

	OverallScore float64
}

// Score computes the weighted overall score for a session, clamped to [0,1].
func Score(s Session) float64 {
	speedScore := 1.0 - s.ProcessingSeconds/speedNormalizationSeconds
	if speedScore < 0 {
		speedScore = 0
	}

	score := s.TranscriptionQuality*weightQuality +
		s.VADAccuracy*weightVADAccuracy +
		speedScore*weightSpeed +
		s.ContextConfidence*weightContext

	if s.QualityRating != nil {
		score += (*s.QualityRating - 0.5) * 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Profile holds learned per-user preferences.
type Profile struct {
	UserID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TotalSessions int

	// ContextPreferences maps a profile name (gaming, precision, ...) to an
	// exponentially weighted preference score.
	ContextPreferences map[string]float64

	// OptimalVADParameters accumulates parameter values from high-scoring
	// sessions, weighted by session score.
	OptimalVADParameters map[string]float64

	ImprovementRate   float64
	SatisfactionScore float64
}

package learning

import (
	"context"
	"errors"
	"fmt"

	"clipscribe/internal/logging"
)

// Objective selects what the parameter search favors.
type Objective string

const (
	ObjectiveAccuracy     Objective = "transcription_accuracy"
	ObjectiveVADPrecision Objective = "vad_precision"
	ObjectiveSpeed        Objective = "processing_speed"
)

// Well-known VAD parameter keys recorded on sessions.
const (
	ParamSileroThreshold     = "silero_threshold"
	ParamEnergyThreshold     = "energy_threshold"
	ParamFrameAggressiveness = "frame_aggressiveness"
	ParamMinSpeechSec        = "min_speech_sec"
	ParamMergeGapSec         = "merge_gap_sec"
)

// OptimizationResult reports the outcome of a grid search.
type OptimizationResult struct {
	Objective       Objective          `json:"objective"`
	OriginalScore   float64            `json:"original_score"`
	OptimizedScore  float64            `json:"optimized_score"`
	Improvement     float64            `json:"improvement"`
	Parameters      map[string]float64 `json:"parameters"`
	SessionsUsed    int                `json:"sessions_used"`
	ConfidenceLevel float64            `json:"confidence_level"`
	Applied         bool               `json:"applied"`
}

// Improvements below this threshold are not applied to the profile.
const significantImprovement = 0.05

var optimizationGrid = struct {
	sileroThresholds []float64
	energyThresholds []float64
	aggressiveness   []float64
	minSpeechSeconds []float64
	mergeGapSeconds  []float64
}{
	sileroThresholds: []float64{0.3, 0.4, 0.5, 0.6, 0.7},
	energyThresholds: []float64{0.3, 0.4, 0.5, 0.6, 0.7},
	aggressiveness:   []float64{1, 2, 3},
	minSpeechSeconds: []float64{0.05, 0.1, 0.15, 0.2},
	mergeGapSeconds:  []float64{0.2, 0.3, 0.4},
}

// Optimize runs a grid search over VAD parameters using the user's session
// history and, when the improvement is significant, stores the winning
// parameters as the user's optimal configuration.
func (s *Store) Optimize(ctx context.Context, userID string, objective Objective, minSessions int) (*OptimizationResult, error) {
	if userID == "" {
		userID = "default"
	}
	if objective == "" {
		objective = ObjectiveAccuracy
	}
	if minSessions <= 0 {
		minSessions = 5
	}

	sessions, err := s.RecentSessions(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	if len(sessions) < minSessions {
		return nil, fmt.Errorf("not enough sessions for optimization: have %d, need %d", len(sessions), minSessions)
	}

	original := evaluateCurrentConfig(sessions, objective)

	bestScore := 0.0
	var bestParams map[string]float64
	for _, silero := range optimizationGrid.sileroThresholds {
		for _, energy := range optimizationGrid.energyThresholds {
			for _, agg := range optimizationGrid.aggressiveness {
				for _, minSpeech := range optimizationGrid.minSpeechSeconds {
					for _, mergeGap := range optimizationGrid.mergeGapSeconds {
						params := map[string]float64{
							ParamSileroThreshold:     silero,
							ParamEnergyThreshold:     energy,
							ParamFrameAggressiveness: agg,
							ParamMinSpeechSec:        minSpeech,
							ParamMergeGapSec:         mergeGap,
						}
						score := evaluateParameterConfig(params, sessions, objective)
						if score > bestScore {
							bestScore = score
							bestParams = params
						}
					}
				}
			}
		}
	}

	if bestParams == nil {
		return nil, errors.New("grid search produced no candidate configuration")
	}

	result := &OptimizationResult{
		Objective:       objective,
		OriginalScore:   original,
		OptimizedScore:  bestScore,
		Improvement:     bestScore - original,
		Parameters:      bestParams,
		SessionsUsed:    len(sessions),
		ConfidenceLevel: 0.7,
	}

	if result.Improvement > significantImprovement {
		if err := s.applyOptimization(ctx, userID, result); err != nil {
			return nil, err
		}
		result.Applied = true
		s.logger.Info("optimization applied",
			logging.String(logging.FieldUser, userID),
			logging.Float64("improvement", result.Improvement),
		)
	} else {
		s.logger.Debug("optimization produced no significant improvement",
			logging.String(logging.FieldUser, userID),
			logging.Float64("improvement", result.Improvement),
		)
	}

	return result, nil
}

// ShouldOptimize reports whether the user has accumulated enough sessions to
// warrant a periodic optimization run.
func (s *Store) ShouldOptimize(ctx context.Context, userID string, minSessions, everySessions int) (bool, error) {
	if everySessions <= 0 {
		everySessions = 10
	}
	count, err := s.SessionCount(ctx, userID)
	if err != nil {
		return false, err
	}
	return count >= minSessions && count%everySessions == 0, nil
}

func (s *Store) applyOptimization(ctx context.Context, userID string, result *OptimizationResult) error {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no profile recorded for user %q", userID)
	}
	if profile.OptimalVADParameters == nil {
		profile.OptimalVADParameters = map[string]float64{}
	}
	for param, value := range result.Parameters {
		profile.OptimalVADParameters[param] = value
	}
	return s.saveProfile(ctx, profile)
}

func evaluateCurrentConfig(sessions []Session, objective Objective) float64 {
	if len(sessions) == 0 {
		return 0
	}
	total := 0.0
	for _, session := range sessions {
		switch objective {
		case ObjectiveVADPrecision:
			total += session.VADAccuracy
		case ObjectiveSpeed:
			speed := 1.0 - session.ProcessingSeconds/speedNormalizationSeconds
			if speed < 0 {
				speed = 0
			}
			total += speed
		default:
			total += session.TranscriptionQuality
		}
	}
	return total / float64(len(sessions))
}

func evaluateParameterConfig(params map[string]float64, sessions []Session, objective Objective) float64 {
	if len(sessions) == 0 {
		return 0
	}
	total := 0.0
	for _, session := range sessions {
		total += simulateSessionScore(session, params, objective)
	}
	return total / float64(len(sessions))
}

// simulateSessionScore estimates the score a historical session would have
// achieved under a candidate configuration. Large departures from the
// parameters the session actually ran with are penalized; each objective adds
// a small bias toward configurations known to serve it.
func simulateSessionScore(session Session, params map[string]float64, objective Objective) float64 {
	score := session.OverallScore

	for param, value := range params {
		original, ok := session.VADParameters[param]
		if !ok {
			continue
		}
		diff := value - original
		if diff < 0 {
			diff = -diff
		}
		var penalty float64
		switch param {
		case ParamSileroThreshold, ParamEnergyThreshold:
			penalty = diff * 0.2
			if penalty > 0.1 {
				penalty = 0.1
			}
		case ParamFrameAggressiveness:
			penalty = diff * 0.05
			if penalty > 0.15 {
				penalty = 0.15
			}
		default:
			penalty = diff * 0.1
			if penalty > 0.05 {
				penalty = 0.05
			}
		}
		score -= penalty
	}

	switch objective {
	case ObjectiveAccuracy:
		if threshold, ok := params[ParamSileroThreshold]; ok && threshold >= 0.4 && threshold <= 0.6 {
			score += 0.05
		}
	case ObjectiveVADPrecision:
		if threshold, ok := params[ParamSileroThreshold]; ok && threshold > 0.5 {
			score += 0.03
		}
	case ObjectiveSpeed:
		if agg, ok := params[ParamFrameAggressiveness]; ok && agg >= 2 {
			score += 0.02
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

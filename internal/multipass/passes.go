package multipass

import (
	"fmt"

	"clipscribe/internal/services/whisper"
)

// Pass names. Each pass trades precision against recall differently; the
// merge step arbitrates between their outputs.
const (
	PassConservative    = "conservative"
	PassAggressive      = "aggressive"
	PassUltraAggressive = "ultra_aggressive"
	PassMicroSpeech     = "micro_speech"
	PassNoiseRobust     = "noise_robust"
)

// DefaultPasses is the full five-pass schedule in execution order.
var DefaultPasses = []string{
	PassConservative,
	PassAggressive,
	PassUltraAggressive,
	PassMicroSpeech,
	PassNoiseRobust,
}

var passPresets = map[string]whisper.PassOptions{
	// High-precision baseline. Strict thresholds keep hallucinations out;
	// whatever it misses the aggressive passes pick up.
	PassConservative: {
		BeamSize:                  8,
		BestOf:                    8,
		Patience:                  2.0,
		LengthPenalty:             1.2,
		RepetitionPenalty:         1.1,
		NoRepeatNgramSize:         4,
		Temperatures:              []float64{0.0},
		CompressionRatioThreshold: 2.2,
		LogProbThreshold:          -0.6,
		NoSpeechThreshold:         0.6,
		VADThreshold:              0.5,
		MinSpeechMs:               300,
		MinSilenceMs:              500,
		SpeechPadMs:               100,
		WordTimestamps:            true,
		ConditionOnPrior:          true,
	},
	PassAggressive: {
		BeamSize:                  5,
		BestOf:                    5,
		Patience:                  1.5,
		LengthPenalty:             1.0,
		RepetitionPenalty:         1.05,
		NoRepeatNgramSize:         3,
		Temperatures:              []float64{0.0, 0.2, 0.4},
		CompressionRatioThreshold: 2.4,
		LogProbThreshold:          -0.8,
		NoSpeechThreshold:         0.4,
		VADThreshold:              0.35,
		MinSpeechMs:               150,
		MinSilenceMs:              200,
		SpeechPadMs:               150,
		WordTimestamps:            true,
		ConditionOnPrior:          true,
	},
	PassUltraAggressive: {
		BeamSize:                  3,
		BestOf:                    3,
		Patience:                  1.0,
		LengthPenalty:             0.8,
		RepetitionPenalty:         1.0,
		NoRepeatNgramSize:         2,
		Temperatures:              []float64{0.0, 0.2, 0.4, 0.6},
		CompressionRatioThreshold: 2.6,
		LogProbThreshold:          -1.0,
		NoSpeechThreshold:         0.3,
		VADThreshold:              0.25,
		MinSpeechMs:               100,
		MinSilenceMs:              100,
		SpeechPadMs:               200,
		WordTimestamps:            true,
		ConditionOnPrior:          true,
	},
	// Tuned for sub-second exclamations. Short length penalty and very low
	// speech thresholds surface reactions the other passes discard.
	PassMicroSpeech: {
		BeamSize:                  3,
		BestOf:                    3,
		Patience:                  0.8,
		LengthPenalty:             0.5,
		RepetitionPenalty:         0.95,
		NoRepeatNgramSize:         2,
		Temperatures:              []float64{0.0, 0.3, 0.6, 0.9},
		CompressionRatioThreshold: 3.0,
		LogProbThreshold:          -1.2,
		NoSpeechThreshold:         0.2,
		VADThreshold:              0.2,
		MinSpeechMs:               50,
		MinSilenceMs:              50,
		SpeechPadMs:               250,
		WordTimestamps:            true,
		ConditionOnPrior:          true,
	},
	// Wide beams and mid temperatures for speech buried under game audio.
	PassNoiseRobust: {
		BeamSize:                  10,
		BestOf:                    10,
		Patience:                  3.0,
		LengthPenalty:             1.5,
		RepetitionPenalty:         1.2,
		NoRepeatNgramSize:         5,
		Temperatures:              []float64{0.1, 0.3},
		CompressionRatioThreshold: 2.0,
		LogProbThreshold:          -0.9,
		NoSpeechThreshold:         0.7,
		VADThreshold:              0.45,
		MinSpeechMs:               400,
		MinSilenceMs:              300,
		SpeechPadMs:               100,
		WordTimestamps:            true,
		ConditionOnPrior:          true,
	},
}

// PresetFor returns the decoding options for a named pass.
func PresetFor(name string) (whisper.PassOptions, error) {
	preset, ok := passPresets[name]
	if !ok {
		return whisper.PassOptions{}, fmt.Errorf("multipass: unknown pass %q", name)
	}
	return preset, nil
}

// KnownPass reports whether name is a recognized pass.
func KnownPass(name string) bool {
	_, ok := passPresets[name]
	return ok
}

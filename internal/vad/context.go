package vad

import (
	"math"

	"clipscribe/internal/config"
	"clipscribe/internal/media/audio"
)

// Context classifies what the game audio is doing so detection can adapt
// its sensitivity to the moment.
type Context string

const (
	ContextCombat      Context = "combat"
	ContextDialogue    Context = "dialogue"
	ContextMenu        Context = "menu"
	ContextExploration Context = "exploration"
	ContextUnknown     Context = "unknown"
)

const (
	contextFrameMs = 30
	// Feature extraction caps at this much audio; the opening of a clip is
	// representative enough and keeps long recordings cheap to analyze.
	contextMaxSeconds = 120

	// Pitch search range for the harmonicity measure.
	pitchMinHz = 70
	pitchMaxHz = 300

	// Frames quieter than this are skipped by the harmonicity measure and
	// never counted as transients.
	contextEnergyFloor = 0.01
)

// Features are the clip-level measurements behind context classification.
type Features struct {
	RMSEnergy        float64
	EnergyVariance   float64
	ZeroCrossingRate float64
	// TransientDensity is the fraction of frames whose energy jumps to more
	// than double, or falls below half, of the previous frame.
	TransientDensity float64
	// SpectralCentroid is a zero-crossing proxy for the spectral centroid
	// in Hz.
	SpectralCentroid float64
	// HarmonicRatio is the fraction of voiced-energy frames whose
	// autocorrelation peaks inside the pitch range.
	HarmonicRatio float64
}

// ContextAnalysis bundles a classification with the features behind it.
type ContextAnalysis struct {
	Context    Context
	Confidence float64
	Features   Features
}

// AnalyzeContext extracts features from the clip and classifies its gaming
// context.
func AnalyzeContext(clip audio.Clip) ContextAnalysis {
	features := ExtractFeatures(clip)
	context, confidence := ClassifyContext(features)
	return ContextAnalysis{Context: context, Confidence: confidence, Features: features}
}

// ExtractFeatures measures the clip in 30ms frames.
func ExtractFeatures(clip audio.Clip) Features {
	if clip.SampleRate <= 0 || len(clip.Samples) == 0 {
		return Features{}
	}
	frameSize := clip.SampleRate * contextFrameMs / 1000
	if frameSize <= 0 {
		return Features{}
	}
	samples := clip.Samples
	if max := clip.SampleRate * contextMaxSeconds; len(samples) > max {
		samples = samples[:max]
	}
	frameCount := len(samples) / frameSize
	if frameCount == 0 {
		return Features{}
	}

	energies := make([]float64, frameCount)
	zcrSum := 0.0
	transients := 0
	harmonicFrames, voicedFrames := 0, 0
	for i := 0; i < frameCount; i++ {
		frame := samples[i*frameSize : (i+1)*frameSize]
		energies[i] = rms(frame)
		zcrSum += zeroCrossingRate(frame)
		if i > 0 && energies[i] > contextEnergyFloor {
			prev := energies[i-1]
			if energies[i] > 2*prev || (prev > contextEnergyFloor && energies[i] < prev/2) {
				transients++
			}
		}
		// Autocorrelation is the expensive measurement; a stride of frames
		// samples the clip well enough.
		if i%4 == 0 && energies[i] > contextEnergyFloor {
			voicedFrames++
			if harmonicPeak(frame, clip.SampleRate) > 0.5 {
				harmonicFrames++
			}
		}
	}

	mean := 0.0
	for _, energy := range energies {
		mean += energy
	}
	mean /= float64(frameCount)
	variance := 0.0
	for _, energy := range energies {
		variance += (energy - mean) * (energy - mean)
	}
	variance /= float64(frameCount)

	features := Features{
		RMSEnergy:        mean,
		EnergyVariance:   variance,
		ZeroCrossingRate: zcrSum / float64(frameCount),
		TransientDensity: float64(transients) / float64(frameCount),
	}
	features.SpectralCentroid = features.ZeroCrossingRate * float64(clip.SampleRate) / 2
	if voicedFrames > 0 {
		features.HarmonicRatio = float64(harmonicFrames) / float64(voicedFrames)
	}
	return features
}

// ClassifyContext applies the rule ladder: combat is loud, percussive, and
// bright; dialogue is moderate, smooth, and harmonic; menus are quiet and
// static; everything else reads as exploration.
func ClassifyContext(f Features) (Context, float64) {
	switch {
	case f.RMSEnergy > 0.3 && f.TransientDensity > 0.5 && f.SpectralCentroid > 2000:
		return ContextCombat, 0.8
	case f.RMSEnergy > 0.05 && f.RMSEnergy < 0.4 &&
		f.TransientDensity < 0.3 && f.SpectralCentroid < 2000 && f.HarmonicRatio > 0.6:
		return ContextDialogue, 0.7
	case f.RMSEnergy < 0.15 && f.TransientDensity < 0.2:
		return ContextMenu, 0.6
	default:
		return ContextExploration, 0.5
	}
}

// ContextAdjustments are the detector overrides recommended for a context.
type ContextAdjustments struct {
	SileroThreshold     float64
	FrameAggressiveness int
	MinSpeechSec        float64
	MinSilenceSec       float64
	MergeGapSec         float64
}

// RecommendAdjustments maps a context onto detector settings: combat wants
// sensitive detection with aggressive merging so rapid call-outs survive,
// dialogue wants precision, menus expect little speech at all.
func RecommendAdjustments(context Context, f Features) ContextAdjustments {
	adj := ContextAdjustments{
		SileroThreshold:     0.5,
		FrameAggressiveness: 2,
		MinSpeechSec:        0.1,
		MinSilenceSec:       0.5,
		MergeGapSec:         0.3,
	}
	switch context {
	case ContextCombat:
		adj.SileroThreshold = 0.3
		adj.FrameAggressiveness = 3
		adj.MinSpeechSec = 0.05
		adj.MergeGapSec = 0.2
	case ContextDialogue:
		adj.SileroThreshold = 0.4
		adj.MinSpeechSec = 0.15
		adj.MergeGapSec = 0.4
	case ContextMenu:
		adj.SileroThreshold = 0.6
		adj.FrameAggressiveness = 1
		adj.MinSpeechSec = 0.2
	case ContextExploration:
		adj.SileroThreshold = 0.45
	}

	if f.RMSEnergy < 0.05 {
		adj.SileroThreshold -= 0.1
	}
	if f.TransientDensity > 0.7 {
		adj.MergeGapSec = 0.15
		adj.MinSpeechSec = 0.05
	}
	if adj.SileroThreshold < 0.1 {
		adj.SileroThreshold = 0.1
	}
	return adj
}

// ApplyAdjustments overlays context recommendations onto a VAD config copy.
func ApplyAdjustments(cfg config.VAD, adj ContextAdjustments) config.VAD {
	tuned := cfg
	tuned.SileroThreshold = adj.SileroThreshold
	tuned.FrameAggressiveness = adj.FrameAggressiveness
	tuned.MinSpeechMs = int(math.Round(adj.MinSpeechSec * 1000))
	tuned.MinSilenceMs = int(math.Round(adj.MinSilenceSec * 1000))
	tuned.MergeGapMs = int(math.Round(adj.MergeGapSec * 1000))
	return tuned
}

func zeroCrossingRate(frame []float32) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i] >= 0) != (frame[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}

// harmonicPeak returns the highest normalized autocorrelation within the
// pitch lag range. Periodic frames (voiced speech) score near 1, noise near
// 0.
func harmonicPeak(frame []float32, sampleRate int) float64 {
	minLag := sampleRate / pitchMaxHz
	maxLag := sampleRate / pitchMinHz
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if minLag < 1 || minLag > maxLag {
		return 0
	}

	energy := 0.0
	for _, sample := range frame {
		energy += float64(sample) * float64(sample)
	}
	if energy == 0 {
		return 0
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag += 2 {
		corr := 0.0
		for i := lag; i < len(frame); i++ {
			corr += float64(frame[i]) * float64(frame[i-lag])
		}
		if normalized := corr / energy; normalized > best {
			best = normalized
		}
	}
	return best
}

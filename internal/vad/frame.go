package vad

import (
	"context"

	"clipscribe/internal/media/audio"
)

const (
	frameDetectorFrameMs = 30
	// Flat confidence for frame spans. The underlying VAD returns only a
	// boolean per frame.
	frameConfidence = 0.7
)

// frameDetector wraps the WebRTC voice activity detector. It requires 16kHz
// input and classifies fixed 30ms frames; consecutive speech frames are
// folded into spans.
type frameDetector struct {
	weight    float64
	processor *frameProcessor
}

// newFrameDetector builds the detector at the given aggressiveness (0
// tolerant to 3 aggressive). It fails when the underlying VAD is
// unavailable, in which case the engine runs without it.
func newFrameDetector(weight float64, aggressiveness int) (*frameDetector, error) {
	if aggressiveness < 0 || aggressiveness > 3 {
		aggressiveness = 3
	}
	processor, err := newFrameProcessor(aggressiveness)
	if err != nil {
		return nil, err
	}
	return &frameDetector{weight: weight, processor: processor}, nil
}

func (d *frameDetector) Name() string    { return "webrtc" }
func (d *frameDetector) Weight() float64 { return d.weight }

func (d *frameDetector) Detect(ctx context.Context, clip audio.Clip) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if clip.SampleRate != audio.WhisperSampleRate {
		return nil, nil
	}

	pcm := clip.PCM16()
	samplesPerFrame := clip.SampleRate * frameDetectorFrameMs / 1000
	frameBytes := samplesPerFrame * 2
	if frameBytes <= 0 {
		return nil, nil
	}

	frameSec := float64(samplesPerFrame) / float64(clip.SampleRate)
	var spans []Span
	start := -1
	frame := 0
	for offset := 0; offset+frameBytes <= len(pcm); offset += frameBytes {
		isSpeech, err := d.processor.Process(clip.SampleRate, pcm[offset:offset+frameBytes])
		if err != nil {
			// Skip undecidable frames the way silence is skipped.
			isSpeech = false
		}
		switch {
		case isSpeech && start < 0:
			start = frame
		case !isSpeech && start >= 0:
			spans = append(spans, Span{
				Start:      float64(start) * frameSec,
				End:        float64(frame) * frameSec,
				Confidence: frameConfidence,
				Source:     d.Name(),
			})
			start = -1
		}
		frame++
	}
	if start >= 0 {
		spans = append(spans, Span{
			Start:      float64(start) * frameSec,
			End:        float64(frame) * frameSec,
			Confidence: frameConfidence,
			Source:     d.Name(),
		})
	}
	return spans, nil
}

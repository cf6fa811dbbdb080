//go:build cgo

package vad

import "github.com/visvasity/webrtcvad"

type frameProcessor struct {
	vad *webrtcvad.VAD
}

func newFrameProcessor(aggressiveness int) (*frameProcessor, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	// WebRTC VAD modes: 0 (quality) .. 3 (aggressive).
	if err := vad.SetMode(aggressiveness); err != nil {
		return nil, err
	}
	return &frameProcessor{vad: vad}, nil
}

func (p *frameProcessor) Process(sampleRate int, frame []byte) (bool, error) {
	return p.vad.Process(sampleRate, frame)
}

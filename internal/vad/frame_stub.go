//go:build !cgo

package vad

import "errors"

type frameProcessor struct{}

func newFrameProcessor(aggressiveness int) (*frameProcessor, error) {
	return nil, errors.New("webrtcvad unavailable (cgo disabled)")
}

func (p *frameProcessor) Process(sampleRate int, frame []byte) (bool, error) {
	return false, errors.New("webrtcvad unavailable (cgo disabled)")
}

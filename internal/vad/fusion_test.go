package vad

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"clipscribe/internal/media/audio"
)

type staticDetector struct {
	name   string
	weight float64
	spans  []Span
	err    error
}

func (d staticDetector) Name() string    { return d.name }
func (d staticDetector) Weight() float64 { return d.weight }

func (d staticDetector) Detect(ctx context.Context, clip audio.Clip) ([]Span, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.spans, nil
}

func span(start, end, confidence float64, source string) Span {
	return Span{Start: start, End: end, Confidence: confidence, Source: source}
}

func TestDetectFusesOverlappingSpans(t *testing.T) {
	engine, err := NewEngine([]Detector{
		staticDetector{name: "silero", weight: 0.5, spans: []Span{
			span(0.0, 1.0, 0.8, "silero"),
			span(5.0, 6.0, 0.8, "silero"),
		}},
		staticDetector{name: "webrtc", weight: 0.2, spans: []Span{
			span(0.5, 1.4, 0.7, "webrtc"),
		}},
	}, Params{MinSpeechSec: 0.1, MergeGapSec: 0.2}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	spans, err := engine.Detect(context.Background(), audio.Clip{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	first := spans[0]
	if first.Start != 0.0 || first.End != 1.4 {
		t.Fatalf("unexpected fused bounds: %+v", first)
	}
	want := (0.8*0.5 + 0.7*0.2) / 0.7
	if math.Abs(first.Confidence-want) > 1e-9 {
		t.Fatalf("unexpected fused confidence: %v want %v", first.Confidence, want)
	}
	if first.Source != "hybrid_silero" {
		t.Fatalf("unexpected fused source: %s", first.Source)
	}
	if spans[1].Source != "silero" {
		t.Fatalf("standalone span should keep its source: %+v", spans[1])
	}
}

func TestDetectFiltersShortSpansAndBridgesGaps(t *testing.T) {
	engine, err := NewEngine([]Detector{
		staticDetector{name: "energy", weight: 0.3, spans: []Span{
			span(0.0, 0.02, 0.6, "energy"),
			span(1.0, 1.5, 0.6, "energy"),
			span(1.6, 2.0, 0.9, "energy"),
		}},
	}, Params{MinSpeechSec: 0.05, MergeGapSec: 0.2}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	spans, err := engine.Detect(context.Background(), audio.Clip{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %+v", spans)
	}
	got := spans[0]
	if got.Start != 1.0 || got.End != 2.0 {
		t.Fatalf("unexpected bridged bounds: %+v", got)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("bridge should keep max confidence: %+v", got)
	}
	if !strings.HasPrefix(got.Source, "merged_") {
		t.Fatalf("bridged span should be labelled merged: %+v", got)
	}
}

func TestDetectToleratesFailingDetector(t *testing.T) {
	engine, err := NewEngine([]Detector{
		staticDetector{name: "silero", weight: 0.5, err: errors.New("helper missing")},
		staticDetector{name: "energy", weight: 0.3, spans: []Span{span(0, 1, 0.6, "energy")}},
	}, Params{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	spans, err := engine.Detect(context.Background(), audio.Clip{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected surviving detector output, got %+v", spans)
	}
}

func TestDetectFailsWhenAllDetectorsFail(t *testing.T) {
	engine, err := NewEngine([]Detector{
		staticDetector{name: "silero", weight: 0.5, err: errors.New("helper missing")},
	}, Params{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := engine.Detect(context.Background(), audio.Clip{}); err == nil {
		t.Fatal("expected error when every detector fails")
	}
}

func TestTotalSpeech(t *testing.T) {
	total := TotalSpeech([]Span{span(0, 1, 0, ""), span(2, 2.5, 0, "")})
	if math.Abs(total-1.5) > 1e-9 {
		t.Fatalf("unexpected total: %v", total)
	}
}

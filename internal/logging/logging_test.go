package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerComposesSubject(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("pass complete",
		String(FieldComponent, "workflow"),
		Int64(FieldJobID, 7),
		String(FieldStage, "transcribing"),
		String(FieldPass, "aggressive"),
	)

	line := buf.String()
	if !strings.Contains(line, "[workflow]") {
		t.Fatalf("expected component in output: %q", line)
	}
	if !strings.Contains(line, "job #7 (transcribing)") {
		t.Fatalf("expected subject in output: %q", line)
	}
	if !strings.Contains(line, "pass=aggressive") {
		t.Fatalf("expected pass attr in output: %q", line)
	}
	if strings.Contains(line, "job_id=") {
		t.Fatalf("job_id should be folded into the subject: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("done", String("path", "/tmp/my clip.srt"))

	if !strings.Contains(buf.String(), `path="/tmp/my clip.srt"`) {
		t.Fatalf("expected quoted path: %q", buf.String())
	}
}

func TestFanoutHandlerDuplicatesRecords(t *testing.T) {
	var a, b bytes.Buffer
	lvl := new(slog.LevelVar)
	handler := newFanoutHandler(
		newConsoleHandler(&a, lvl, false),
		newConsoleHandler(&b, lvl, false),
	)
	logger := slog.New(handler)

	logger.Info("hello")

	if !strings.Contains(a.String(), "hello") {
		t.Fatalf("first handler missed record: %q", a.String())
	}
	if !strings.Contains(b.String(), "hello") {
		t.Fatalf("second handler missed record: %q", b.String())
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var a, b bytes.Buffer
	debugLvl := new(slog.LevelVar)
	debugLvl.Set(slog.LevelDebug)
	infoLvl := new(slog.LevelVar)
	infoLvl.Set(slog.LevelInfo)

	handler := newFanoutHandler(
		newConsoleHandler(&a, debugLvl, false),
		newConsoleHandler(&b, infoLvl, false),
	)

	rec := slog.Record{Level: slog.LevelDebug, Message: "verbose"}
	if err := handler.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if !strings.Contains(a.String(), "verbose") {
		t.Fatalf("debug handler should receive record: %q", a.String())
	}
	if b.Len() != 0 {
		t.Fatalf("info handler should skip debug record: %q", b.String())
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}

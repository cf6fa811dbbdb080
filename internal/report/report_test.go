package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipscribe/internal/report"
)

func TestWriteAndReadResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.report.json")

	result := report.Result{
		Source:          "/videos/clip.mkv",
		Title:           "clip",
		Success:         true,
		SubtitleFile:    "/out/clip.srt",
		DurationSeconds: 120.5,
		SpeechSeconds:   48.2,
		CueCount:        37,
		AvgConfidence:   0.81,
		PassStats: []report.PassStat{
			{Pass: "conservative", Segments: 12, AvgConfidence: 0.9},
		},
	}
	if err := report.WriteResult(path, result); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	loaded, err := report.ReadResult(path)
	if err != nil {
		t.Fatalf("ReadResult failed: %v", err)
	}
	if loaded.CueCount != 37 || loaded.Title != "clip" {
		t.Fatalf("unexpected result: %#v", loaded)
	}
	if loaded.GeneratedAt.IsZero() {
		t.Fatal("expected GeneratedAt to be stamped")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestSummaryCounters(t *testing.T) {
	var summary report.Summary
	summary.Started = time.Now().Add(-2 * time.Minute)
	summary.Add(report.Result{Source: "a.mkv", Success: true})
	summary.Add(report.Result{Source: "b.mkv", Success: false, Error: "whisper crashed"})
	summary.Finished = time.Now()

	if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected counters: %#v", summary)
	}

	path := filepath.Join(t.TempDir(), "summary.json")
	if err := report.WriteSummary(path, summary); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(payload), "whisper crashed") {
		t.Fatal("expected error detail in summary JSON")
	}
}

func TestJournalLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.journal")
	journal, err := report.NewJournal(path)
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	if err := journal.Success("/videos/a.mkv", "37 cues"); err != nil {
		t.Fatalf("Success failed: %v", err)
	}
	if err := journal.Error("/videos/b.mkv", "no audio stream"); err != nil {
		t.Fatalf("Error failed: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 journal lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "SUCCESS /videos/a.mkv") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR /videos/b.mkv no audio stream") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}

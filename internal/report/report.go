package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PassStat summarizes one transcription pass inside a result.
type PassStat struct {
	Pass          string  `json:"pass"`
	Segments      int     `json:"segments"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Correction records one jargon fix applied to a cue.
type Correction struct {
	Cue       int     `json:"cue"`
	Original  string  `json:"original"`
	Corrected string  `json:"corrected"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
}

// Result is the per-file transcription report.
type Result struct {
	Source            string       `json:"source"`
	Title             string       `json:"title"`
	Profile           string       `json:"profile,omitempty"`
	Success           bool         `json:"success"`
	Error             string       `json:"error,omitempty"`
	SubtitleFile      string       `json:"subtitle_file,omitempty"`
	TranscriptFile    string       `json:"transcript_file,omitempty"`
	DurationSeconds   float64      `json:"duration_seconds"`
	SpeechSeconds     float64      `json:"speech_seconds"`
	CueCount          int          `json:"cue_count"`
	AvgConfidence     float64      `json:"avg_confidence"`
	Context           string       `json:"context,omitempty"`
	ContextConfidence float64      `json:"context_confidence,omitempty"`
	PassStats         []PassStat   `json:"pass_stats,omitempty"`
	Corrections       []Correction `json:"corrections,omitempty"`
	ValidationIssues  []string     `json:"validation_issues,omitempty"`
	ProcessingSeconds float64      `json:"processing_seconds"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// Summary aggregates a batch run.
type Summary struct {
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Results      []Result  `json:"results"`
	JournalFile  string    `json:"journal_file,omitempty"`
	OutputDir    string    `json:"output_dir,omitempty"`
	ProfileUsed  string    `json:"profile_used,omitempty"`
	ElapsedHuman string    `json:"elapsed_human,omitempty"`
}

// Add appends a result and updates the counters.
func (s *Summary) Add(result Result) {
	s.Results = append(s.Results, result)
	s.Total++
	if result.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// WriteResult writes a per-file report as indented JSON using a temp file
// and rename so readers never observe partial output.
func WriteResult(path string, result Result) error {
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	return writeJSON(path, result)
}

// WriteSummary writes the batch summary next to the per-file reports.
func WriteSummary(path string, summary Summary) error {
	if summary.ElapsedHuman == "" && !summary.Finished.IsZero() && !summary.Started.IsZero() {
		summary.ElapsedHuman = summary.Finished.Sub(summary.Started).Round(time.Second).String()
	}
	return writeJSON(path, summary)
}

// ReadResult loads a previously written per-file report.
func ReadResult(path string) (Result, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read report: %w", err)
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("decode report: %w", err)
	}
	return result, nil
}

func writeJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".clipscribe-report-%d.tmp", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write report temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Journal appends one terminal line per processed file so batch runs can be
// audited without parsing JSON.
type Journal struct {
	path string
}

// NewJournal creates (or reopens) a journal at the given path.
func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	return &Journal{path: path}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Success records a successful file.
func (j *Journal) Success(source, detail string) error {
	return j.append("SUCCESS", source, detail)
}

// Error records a failed file.
func (j *Journal) Error(source, detail string) error {
	return j.append("ERROR", source, detail)
}

func (j *Journal) append(status, source, detail string) error {
	line := fmt.Sprintf("%s %s %s", time.Now().UTC().Format(time.RFC3339), status, source)
	if detail = strings.TrimSpace(detail); detail != "" {
		line += " " + detail
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

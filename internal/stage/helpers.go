package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipscribe/internal/config"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/vad"
)

// ItemWorkDir returns (and creates) the scratch directory for one queue item.
func ItemWorkDir(cfg *config.Config, item *queue.Item) (string, error) {
	dir := filepath.Join(cfg.Paths.WorkDir, fmt.Sprintf("job-%06d", item.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(
			services.ErrConfiguration, "stage", "create work dir",
			"Failed to create item work directory", err)
	}
	return dir, nil
}

// EncodeSpeechSpans serializes detected speech spans for storage on a queue
// item.
func EncodeSpeechSpans(spans []vad.Span) (string, error) {
	payload, err := json.Marshal(spans)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "encode speech spans",
			"Failed to serialize speech spans", err)
	}
	return string(payload), nil
}

// ParseSpeechSpans decodes the speech spans stored on a queue item.
// On failure it returns a services.ErrValidation suitable for stage Execute
// methods.
func ParseSpeechSpans(raw string) ([]vad.Span, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse speech spans",
			"Speech spans missing; rerun detection", nil)
	}
	var spans []vad.Span
	if err := json.Unmarshal([]byte(raw), &spans); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse speech spans",
			"Speech spans invalid; rerun detection", err)
	}
	return spans, nil
}

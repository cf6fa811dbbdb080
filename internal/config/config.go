package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
	LearningDB string `toml:"learning_db"`
}

// Whisper contains configuration for the faster-whisper CLI invocation.
type Whisper struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	Language    string `toml:"language"`
	// Prompt selects the initial prompt bias: "keywords", "long", or "none".
	// The keyword prompt lists Argentine gaming terms and player nicknames
	// without full sentences, which avoids literal prompt echo.
	Prompt         string `toml:"prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VAD contains configuration for the hybrid voice activity detector.
type VAD struct {
	SampleRate int `toml:"sample_rate"`

	EnergyWeight float64 `toml:"energy_weight"`
	FrameWeight  float64 `toml:"frame_weight"`
	SileroWeight float64 `toml:"silero_weight"`

	EnergyThreshold     float64 `toml:"energy_threshold"`
	FrameAggressiveness int     `toml:"frame_aggressiveness"`
	SileroBinary        string  `toml:"silero_binary"`
	SileroThreshold     float64 `toml:"silero_threshold"`

	MinSpeechMs  int  `toml:"min_speech_ms"`
	MinSilenceMs int  `toml:"min_silence_ms"`
	MergeGapMs   int  `toml:"merge_gap_ms"`
	GamingMode   bool `toml:"gaming_mode"`
}

// Multipass contains configuration for the multipass transcription merge.
type Multipass struct {
	Enabled       bool     `toml:"enabled"`
	Passes        []string `toml:"passes"`
	MaxChunkWords int      `toml:"max_chunk_words"`
	GapFill       bool     `toml:"gap_fill"`
	MinGapSeconds float64  `toml:"min_gap_seconds"`
}

// Jargon contains configuration for Argentine gaming jargon correction.
type Jargon struct {
	Enabled        bool    `toml:"enabled"`
	DictionaryPath string  `toml:"dictionary_path"`
	MatchThreshold float64 `toml:"match_threshold"`
}

// Learning contains configuration for the adaptive learning store.
type Learning struct {
	Enabled               bool    `toml:"enabled"`
	MinSessions           int     `toml:"min_sessions"`
	Alpha                 float64 `toml:"alpha"`
	OptimizeEverySessions int     `toml:"optimize_every_sessions"`
	// ApplyOptimized overlays a user's learned optimal VAD parameters onto
	// the detector configuration when building a pipeline for that user.
	ApplyOptimized bool `toml:"apply_optimized"`
}

// Workflow contains daemon timing and batch settings.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
	BatchConcurrency  int `toml:"batch_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for clipscribe.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, log, and learning database locations
//   - Whisper: faster-whisper CLI model and device settings
//   - VAD: hybrid voice-activity-detector weights and thresholds
//   - Multipass: pass selection and merge/chunking behavior
//   - Jargon: Argentine gaming jargon dictionary and matching
//   - Learning: adaptive parameter learning
//   - Workflow: daemon polling intervals and batch concurrency
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Whisper   Whisper   `toml:"whisper"`
	VAD       VAD       `toml:"vad"`
	Multipass Multipass `toml:"multipass"`
	Jargon    Jargon    `toml:"jargon"`
	Learning  Learning  `toml:"learning"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if db := strings.TrimSpace(c.Paths.LearningDB); db != "" {
		if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
			return fmt.Errorf("create learning db directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

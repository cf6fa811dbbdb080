package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"clipscribe/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "clipscribe", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Whisper.Model != "large-v3" {
		t.Fatalf("unexpected default model: %q", cfg.Whisper.Model)
	}
	if cfg.Whisper.Language != "es" {
		t.Fatalf("unexpected default language: %q", cfg.Whisper.Language)
	}
	if !cfg.VAD.GamingMode {
		t.Fatal("expected gaming mode enabled by default")
	}
	if len(cfg.Multipass.Passes) != 5 {
		t.Fatalf("expected five default passes, got %v", cfg.Multipass.Passes)
	}
	if cfg.Workflow.BatchConcurrency != 1 {
		t.Fatalf("unexpected batch concurrency: %d", cfg.Workflow.BatchConcurrency)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "config.toml")
	content := `
[whisper]
model = "medium"
device = "cpu"

[vad]
energy_threshold = 0.4

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Whisper.Model != "medium" {
		t.Fatalf("unexpected model: %q", cfg.Whisper.Model)
	}
	if cfg.Whisper.Device != "cpu" {
		t.Fatalf("unexpected device: %q", cfg.Whisper.Device)
	}
	if cfg.VAD.EnergyThreshold != 0.4 {
		t.Fatalf("unexpected energy threshold: %v", cfg.VAD.EnergyThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "config.toml")
	content := `
[whisper]
device = "tpu"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid whisper.device")
	}
}

func TestApplyProfile(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ApplyProfile("gaming"); err != nil {
		t.Fatalf("gaming profile: %v", err)
	}
	if cfg.VAD.EnergyThreshold != 0.35 {
		t.Fatalf("unexpected gaming energy threshold: %v", cfg.VAD.EnergyThreshold)
	}
	if cfg.VAD.MinSpeechMs != 50 {
		t.Fatalf("unexpected gaming min speech: %d", cfg.VAD.MinSpeechMs)
	}

	cfg = config.Default()
	if err := cfg.ApplyProfile("fast"); err != nil {
		t.Fatalf("fast profile: %v", err)
	}
	if cfg.Multipass.Enabled {
		t.Fatal("expected multipass disabled for fast profile")
	}
	if cfg.Whisper.Model != "medium" {
		t.Fatalf("unexpected fast model: %q", cfg.Whisper.Model)
	}

	cfg = config.Default()
	if err := cfg.ApplyProfile("turbo"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

package config

import (
	"fmt"
	"strings"
)

// Profile names accepted by the CLI.
const (
	ProfileGaming    = "gaming"
	ProfilePrecision = "precision"
	ProfileFast      = "fast"
	ProfileStreaming = "streaming"
)

// Profiles returns the ordered list of known profile names.
func Profiles() []string {
	return []string{ProfileGaming, ProfilePrecision, ProfileFast, ProfileStreaming}
}

// ApplyProfile overlays a named preset onto the configuration. Profiles tune
// the whisper, VAD, and multipass sections; explicit config file values for
// other sections are left untouched.
func (c *Config) ApplyProfile(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileGaming:
		c.applyGamingProfile()
	case ProfilePrecision:
		c.applyPrecisionProfile()
	case ProfileFast:
		c.applyFastProfile()
	case ProfileStreaming:
		c.applyStreamingProfile()
	default:
		return fmt.Errorf("unknown profile %q (expected one of: %s)", name, strings.Join(Profiles(), ", "))
	}
	return nil
}

// applyGamingProfile tunes detection for rapid overlapping speech with
// background game audio. Thresholds follow the tuned gaming VAD preset:
// more sensitive detection, shorter minimum durations, tighter gap merging.
func (c *Config) applyGamingProfile() {
	c.VAD.GamingMode = true
	c.VAD.EnergyThreshold = 0.35
	c.VAD.SileroThreshold = 0.35
	c.VAD.EnergyWeight = 0.6
	c.VAD.FrameWeight = 0.25
	c.VAD.SileroWeight = 0.15
	c.VAD.FrameAggressiveness = 3
	c.VAD.MinSpeechMs = 50
	c.VAD.MinSilenceMs = 300
	c.VAD.MergeGapMs = 200
	c.Multipass.Enabled = true
	c.Multipass.Passes = []string{"conservative", "aggressive", "ultra_aggressive", "micro_speech", "noise_robust"}
	c.Multipass.GapFill = true
}

// applyPrecisionProfile favors accuracy over coverage: conservative VAD and
// the full pass ladder, trusting only high-confidence segments.
func (c *Config) applyPrecisionProfile() {
	c.VAD.GamingMode = false
	c.VAD.EnergyThreshold = 0.5
	c.VAD.SileroThreshold = 0.5
	c.VAD.EnergyWeight = 0.5
	c.VAD.FrameWeight = 0.3
	c.VAD.SileroWeight = 0.2
	c.VAD.FrameAggressiveness = 2
	c.VAD.MinSpeechMs = 300
	c.VAD.MinSilenceMs = 500
	c.VAD.MergeGapMs = 300
	c.Multipass.Enabled = true
	c.Multipass.Passes = []string{"conservative", "aggressive", "noise_robust"}
	c.Multipass.GapFill = false
}

// applyFastProfile trades quality for turnaround: a smaller model and a
// single aggressive pass with no merge stage.
func (c *Config) applyFastProfile() {
	c.Whisper.Model = "medium"
	c.VAD.GamingMode = true
	c.VAD.FrameAggressiveness = 2
	c.Multipass.Enabled = false
	c.Multipass.Passes = []string{"aggressive"}
	c.Multipass.GapFill = false
}

// applyStreamingProfile targets near-real-time clips: small model, short
// minimum durations so rapid call-outs survive, single pass.
func (c *Config) applyStreamingProfile() {
	c.Whisper.Model = "small"
	c.VAD.GamingMode = true
	c.VAD.EnergyThreshold = 0.4
	c.VAD.SileroThreshold = 0.4
	c.VAD.MinSpeechMs = 50
	c.VAD.MinSilenceMs = 200
	c.VAD.MergeGapMs = 150
	c.Multipass.Enabled = false
	c.Multipass.Passes = []string{"aggressive"}
	c.Multipass.GapFill = false
}

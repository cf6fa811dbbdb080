package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateMultipass(); err != nil {
		return err
	}
	if err := c.validateJargon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWhisper() error {
	switch c.Whisper.Device {
	case "cuda", "cpu":
	default:
		return fmt.Errorf("whisper.device must be cuda or cpu, got %q", c.Whisper.Device)
	}
	switch c.Whisper.Prompt {
	case "keywords", "long", "none":
	default:
		return fmt.Errorf("whisper.prompt must be keywords, long, or none, got %q", c.Whisper.Prompt)
	}
	return nil
}

func (c *Config) validateVAD() error {
	if c.VAD.FrameAggressiveness < 0 || c.VAD.FrameAggressiveness > 3 {
		return errors.New("vad.frame_aggressiveness must be between 0 and 3")
	}
	if c.VAD.EnergyThreshold <= 0 || c.VAD.EnergyThreshold > 1 {
		return errors.New("vad.energy_threshold must be between 0 and 1")
	}
	if c.VAD.SileroThreshold <= 0 || c.VAD.SileroThreshold > 1 {
		return errors.New("vad.silero_threshold must be between 0 and 1")
	}
	total := c.VAD.EnergyWeight + c.VAD.FrameWeight + c.VAD.SileroWeight
	if total <= 0 {
		return errors.New("vad detector weights must sum to a positive value")
	}
	if math.Abs(total-1.0) > 0.05 {
		return fmt.Errorf("vad detector weights should sum to 1.0, got %.2f", total)
	}
	return nil
}

func (c *Config) validateMultipass() error {
	for _, pass := range c.Multipass.Passes {
		switch strings.ToLower(strings.TrimSpace(pass)) {
		case "conservative", "aggressive", "ultra_aggressive", "micro_speech", "noise_robust":
		default:
			return fmt.Errorf("multipass.passes contains unknown pass %q", pass)
		}
	}
	return nil
}

func (c *Config) validateJargon() error {
	if c.Jargon.MatchThreshold <= 0 || c.Jargon.MatchThreshold > 1 {
		return errors.New("jargon.match_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

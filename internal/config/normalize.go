package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeVAD()
	c.normalizeMultipass()
	c.normalizeWorkflow()
	c.normalizeLogging()
	if err := c.normalizeJargon(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LearningDB) == "" {
		c.Paths.LearningDB = defaultLearningDB
	}
	if c.Paths.LearningDB, err = expandPath(c.Paths.LearningDB); err != nil {
		return fmt.Errorf("paths.learning_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeWhisper() {
	if strings.TrimSpace(c.Whisper.Binary) == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Whisper.Model) == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Device = strings.ToLower(strings.TrimSpace(c.Whisper.Device))
	if c.Whisper.Device == "" {
		c.Whisper.Device = defaultWhisperDevice
	}
	if strings.TrimSpace(c.Whisper.ComputeType) == "" {
		c.Whisper.ComputeType = defaultWhisperComputeType
	}
	if strings.TrimSpace(c.Whisper.Language) == "" {
		c.Whisper.Language = defaultWhisperLanguage
	}
	c.Whisper.Prompt = strings.ToLower(strings.TrimSpace(c.Whisper.Prompt))
	if c.Whisper.Prompt == "" {
		c.Whisper.Prompt = defaultWhisperPrompt
	}
	if c.Whisper.TimeoutSeconds <= 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeoutSecs
	}
}

func (c *Config) normalizeVAD() {
	if c.VAD.SampleRate <= 0 {
		c.VAD.SampleRate = defaultVADSampleRate
	}
	if c.VAD.EnergyWeight <= 0 && c.VAD.FrameWeight <= 0 && c.VAD.SileroWeight <= 0 {
		c.VAD.EnergyWeight = defaultEnergyWeight
		c.VAD.FrameWeight = defaultFrameWeight
		c.VAD.SileroWeight = defaultSileroWeight
	}
	if c.VAD.EnergyThreshold <= 0 {
		c.VAD.EnergyThreshold = defaultEnergyThreshold
	}
	if c.VAD.MinSpeechMs <= 0 {
		c.VAD.MinSpeechMs = defaultMinSpeechMs
	}
	if c.VAD.MinSilenceMs <= 0 {
		c.VAD.MinSilenceMs = defaultMinSilenceMs
	}
	if c.VAD.MergeGapMs <= 0 {
		c.VAD.MergeGapMs = defaultMergeGapMs
	}
}

func (c *Config) normalizeMultipass() {
	if len(c.Multipass.Passes) == 0 {
		c.Multipass.Passes = Default().Multipass.Passes
	}
	if c.Multipass.MaxChunkWords <= 0 {
		c.Multipass.MaxChunkWords = defaultMaxChunkWords
	}
	if c.Multipass.MinGapSeconds <= 0 {
		c.Multipass.MinGapSeconds = defaultMinGapSeconds
	}
}

func (c *Config) normalizeJargon() error {
	if c.Jargon.MatchThreshold <= 0 {
		c.Jargon.MatchThreshold = defaultJargonThreshold
	}
	if strings.TrimSpace(c.Jargon.DictionaryPath) == "" {
		return nil
	}
	expanded, err := expandPath(c.Jargon.DictionaryPath)
	if err != nil {
		return fmt.Errorf("jargon.dictionary_path: %w", err)
	}
	c.Jargon.DictionaryPath = expanded
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.BatchConcurrency <= 0 {
		c.Workflow.BatchConcurrency = defaultBatchConcurrency
	}
	if c.Learning.Alpha <= 0 || c.Learning.Alpha >= 1 {
		c.Learning.Alpha = defaultLearningAlpha
	}
	if c.Learning.MinSessions <= 0 {
		c.Learning.MinSessions = defaultLearningMinSessions
	}
	if c.Learning.OptimizeEverySessions <= 0 {
		c.Learning.OptimizeEverySessions = defaultOptimizeEvery
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

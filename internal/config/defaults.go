package config

const (
	defaultOutputDir        = "~/.local/share/clipscribe/output"
	defaultWorkDir          = "~/.local/share/clipscribe/work"
	defaultLogDir           = "~/.local/share/clipscribe/logs"
	defaultLearningDB       = "~/.local/share/clipscribe/learning.db"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultWhisperBinary       = "faster-whisper"
	defaultWhisperModel        = "large-v3"
	defaultWhisperDevice       = "cuda"
	defaultWhisperComputeType  = "float16"
	defaultWhisperLanguage     = "es"
	defaultWhisperPrompt       = "keywords"
	defaultWhisperTimeoutSecs  = 3600
	defaultQueuePollInterval   = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultBatchConcurrency    = 1
	defaultMaxChunkWords       = 3
	defaultMinGapSeconds       = 1.0
	defaultJargonThreshold     = 0.82
	defaultLearningMinSessions = 5
	defaultLearningAlpha       = 0.1
	defaultOptimizeEvery       = 10

	defaultVADSampleRate   = 16000
	defaultEnergyWeight    = 0.5
	defaultFrameWeight     = 0.3
	defaultSileroWeight    = 0.2
	defaultEnergyThreshold = 0.5
	defaultSileroThreshold = 0.5
	defaultAggressiveness  = 2
	defaultMinSpeechMs     = 100
	defaultMinSilenceMs    = 500
	defaultMergeGapMs      = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
			LearningDB: defaultLearningDB,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Device:         defaultWhisperDevice,
			ComputeType:    defaultWhisperComputeType,
			Language:       defaultWhisperLanguage,
			Prompt:         defaultWhisperPrompt,
			TimeoutSeconds: defaultWhisperTimeoutSecs,
		},
		VAD: VAD{
			SampleRate:          defaultVADSampleRate,
			EnergyWeight:        defaultEnergyWeight,
			FrameWeight:         defaultFrameWeight,
			SileroWeight:        defaultSileroWeight,
			EnergyThreshold:     defaultEnergyThreshold,
			SileroThreshold:     defaultSileroThreshold,
			FrameAggressiveness: defaultAggressiveness,
			MinSpeechMs:         defaultMinSpeechMs,
			MinSilenceMs:        defaultMinSilenceMs,
			MergeGapMs:          defaultMergeGapMs,
			GamingMode:          true,
		},
		Multipass: Multipass{
			Enabled:       true,
			Passes:        []string{"conservative", "aggressive", "ultra_aggressive", "micro_speech", "noise_robust"},
			MaxChunkWords: defaultMaxChunkWords,
			GapFill:       true,
			MinGapSeconds: defaultMinGapSeconds,
		},
		Jargon: Jargon{
			Enabled:        true,
			MatchThreshold: defaultJargonThreshold,
		},
		Learning: Learning{
			Enabled:               true,
			MinSessions:           defaultLearningMinSessions,
			Alpha:                 defaultLearningAlpha,
			OptimizeEverySessions: defaultOptimizeEvery,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			BatchConcurrency:  defaultBatchConcurrency,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

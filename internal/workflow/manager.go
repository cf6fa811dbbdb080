package workflow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates,
// in processing order.
type StageSet struct {
	Extractor   stage.Handler
	Detector    stage.Handler
	Transcriber stage.Handler
	Corrector   stage.Handler
	Renderer    stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager drives queue items through the transcription pipeline one stage at
// a time. A single worker loop claims the oldest ready item, runs its next
// stage, and persists the transition.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	startOrder   []queue.Status

	mu       sync.RWMutex
	running  bool
	cancel   func()
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item
}

// NewManager constructs a workflow manager around the given stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages StageSet) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.WithComponent(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Second
	}
	m.configureStages(stages)
	return m
}

func (m *Manager) configureStages(set StageSet) {
	m.stages = []pipelineStage{
		{name: "extraction", handler: set.Extractor, startStatus: queue.StatusPending, processingStatus: queue.StatusExtracting, doneStatus: queue.StatusExtracted},
		{name: "detection", handler: set.Detector, startStatus: queue.StatusExtracted, processingStatus: queue.StatusDetecting, doneStatus: queue.StatusDetected},
		{name: "transcription", handler: set.Transcriber, startStatus: queue.StatusDetected, processingStatus: queue.StatusTranscribing, doneStatus: queue.StatusTranscribed},
		{name: "correction", handler: set.Corrector, startStatus: queue.StatusTranscribed, processingStatus: queue.StatusCorrecting, doneStatus: queue.StatusCorrected},
		{name: "rendering", handler: set.Renderer, startStatus: queue.StatusCorrected, processingStatus: queue.StatusRendering, doneStatus: queue.StatusCompleted},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.startOrder = make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.startOrder = append(m.startOrder, stg.startStatus)
	}
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	stg, ok := m.stageByStart[status]
	return stg, ok
}

// deriveStageLabel produces a human readable label for a processing status.
func deriveStageLabel(status queue.Status) string {
	switch status {
	case queue.StatusExtracting:
		return "Extracting audio"
	case queue.StatusDetecting:
		return "Detecting speech"
	case queue.StatusTranscribing:
		return "Transcribing"
	case queue.StatusCorrecting:
		return "Correcting jargon"
	case queue.StatusRendering:
		return "Rendering output"
	case queue.StatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Stage %s", status)
	}
}

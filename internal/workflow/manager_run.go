package workflow

import (
	"context"
	"errors"
	"time"

	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
)

// Start begins background queue processing. Interrupted processing items are
// rolled back to their previous checkpoint before the loop begins so a crash
// mid-stage never wedges the queue.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		m.logger.Warn("failed to reset interrupted items", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset interrupted items", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, m.logger); err != nil {
			m.logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err))
		}

		item, err := m.store.NextForStatuses(ctx, m.startOrder...)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next queue item", logging.Error(err))
			m.waitForItemOrShutdown(ctx)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// ProcessItem runs every remaining stage of a single item to completion. It
// backs the one-shot transcribe command, which bypasses the polling loop.
func (m *Manager) ProcessItem(ctx context.Context, item *queue.Item) error {
	for {
		if _, ok := m.stageForStatus(item.Status); !ok {
			return nil
		}
		if err := m.processItem(ctx, item); err != nil {
			return err
		}
		refreshed, err := m.store.GetByID(ctx, item.ID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return nil
		}
		item = refreshed
		if item.Status == queue.StatusCompleted || item.Status == queue.StatusFailed {
			return nil
		}
	}
}

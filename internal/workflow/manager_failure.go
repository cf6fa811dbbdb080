package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithJob(m.logger, item.ID)

	message := classifyStageFailure(stageName, stageErr)
	item.SetFailed(message)
	item.RunToken = ""

	retryable := services.Retryable(stageErr)
	if !retryable {
		item.NeedsReview = true
		if item.ReviewReason == "" {
			item.ReviewReason = message
		}
	}

	logger.Error("stage failed",
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", message),
		logging.Bool("retryable", retryable),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Debug("shutting down, could not persist stage failure")
		case errors.Is(err, queue.ErrStaleClaim):
			logger.Warn("item was reclaimed by another worker, discarding failure")
		default:
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return fmt.Sprintf("%s failed", stageName)
	}
	return message
}

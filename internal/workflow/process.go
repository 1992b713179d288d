package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/services"
	"clipsight/internal/stages"
)

// processRecord drives one claimed record through its full stage sequence
// and lands it in a terminal state.
func (m *Manager) processRecord(ctx context.Context, logger *slog.Logger, record *media.Record) error {
	runCtx := services.WithMediaID(ctx, record.ID)
	runCtx = services.WithRunID(runCtx, record.RunID)
	logger = logging.WithContext(runCtx, logger)
	logger.Info("processing media record", logging.String("kind", string(record.Kind)))

	hbCtx, stopHeartbeat := context.WithCancel(runCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.run(hbCtx, &hbWG, record.ID)
	defer func() {
		stopHeartbeat()
		hbWG.Wait()
	}()

	sequence := stages.SequenceFor(record.Kind, m.deps)
	for _, handler := range sequence {
		if err := runCtx.Err(); err != nil {
			return err
		}

		name := handler.Name()
		stageCtx := services.WithStage(runCtx, name)

		if err := m.store.SetStage(stageCtx, record.ID, name); err != nil {
			return m.failRecord(ctx, logger, record, name, err)
		}
		m.appendLog(stageCtx, record.ID, media.LevelStep, fmt.Sprintf("%s started", media.StageLabel(name)))

		if err := handler.Execute(stageCtx, record); err != nil {
			if errors.Is(err, context.Canceled) {
				// Daemon shutdown: startup recovery will fail the record.
				return err
			}
			return m.failRecord(ctx, logger, record, name, err)
		}
		logging.WithContext(stageCtx, logger).Info("stage completed")
	}

	m.appendLog(runCtx, record.ID, media.LevelSuccess, "analysis complete")
	if _, err := m.store.Finish(runCtx, record.ID, media.StatusCompleted, ""); err != nil {
		logger.Error("mark completed failed", logging.Error(err))
		return err
	}
	logger.Info("media record completed")
	return nil
}

func (m *Manager) failRecord(ctx context.Context, logger *slog.Logger, record *media.Record, stageName string, cause error) error {
	message := fmt.Sprintf("%s failed: %v", media.StageLabel(stageName), cause)
	m.appendLog(ctx, record.ID, media.LevelError, message)
	if _, err := m.store.Finish(ctx, record.ID, media.StatusFailed, cause.Error()); err != nil {
		logger.Error("mark failed errored", logging.Error(err), logging.String(logging.FieldStage, stageName))
		return err
	}
	logger.Error("stage failed", logging.Error(cause), logging.String(logging.FieldStage, stageName))
	return cause
}

// appendLog writes a progress log entry; log failures are reported but never
// change the record's fate.
func (m *Manager) appendLog(ctx context.Context, mediaID int64, level media.LogLevel, message string) {
	if _, err := m.store.AppendLog(ctx, mediaID, level, message); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("progress log append failed", logging.Int64(logging.FieldMediaID, mediaID), logging.Error(err))
	}
}

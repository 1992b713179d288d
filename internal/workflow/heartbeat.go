package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipsight/internal/logging"
	"clipsight/internal/media"
)

// heartbeatLoop refreshes the heartbeat column of a processing record so
// startup recovery can tell a crash from a live run.
type heartbeatLoop struct {
	store    *media.Store
	logger   *slog.Logger
	interval time.Duration
}

func (h *heartbeatLoop) run(ctx context.Context, wg *sync.WaitGroup, mediaID int64) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.NewComponentLogger(h.logger, "workflow-heartbeat")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, mediaID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Int64(logging.FieldMediaID, mediaID), logging.Error(err))
			}
		}
	}
}

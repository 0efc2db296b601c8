package scheduler

import (
	"context"
	"time"

	"ipkwealth_backend/platform/logger"
)

const defaultOpenLeadSweepInterval = 15 * time.Minute

// OpenLeadSweep periodically queues an assignment of every open lead, so
// leads that arrived while no RM was active are picked up later.
type OpenLeadSweep struct {
	queue    AssignmentQueue
	log      *logger.Logger
	interval time.Duration
}

func NewOpenLeadSweep(queue AssignmentQueue, log *logger.Logger, interval time.Duration) *OpenLeadSweep {
	if interval <= 0 {
		interval = defaultOpenLeadSweepInterval
	}
	return &OpenLeadSweep{queue: queue, log: log, interval: interval}
}

func (s *OpenLeadSweep) Run(ctx context.Context) {
	if s == nil || s.queue == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OpenLeadSweep) sweep(ctx context.Context) {
	taskID, err := s.queue.EnqueueAssignOpen(ctx, nil)
	if err != nil {
		s.log.Warn("open lead sweep enqueue failed", "error", err)
		return
	}
	s.log.Debug("open lead sweep queued", "taskId", taskID)
}

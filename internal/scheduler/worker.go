package scheduler

import (
	"context"
	"fmt"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadAssigner is the lifecycle surface the worker drives.
type LeadAssigner interface {
	AssignMany(ctx context.Context, leadIDs []uuid.UUID, concurrency int, actorID *uuid.UUID) ([]domain.Lead, error)
	AssignOpenLeads(ctx context.Context, actorID *uuid.UUID) ([]domain.Lead, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	assigner LeadAssigner
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, assigner LeadAssigner, log *logger.Logger) (*Worker, error) {
	if assigner == nil {
		return nil, fmt.Errorf("lead assigner is required")
	}
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(assigner, log)
	w.server = server
	return w, nil
}

func newWorker(assigner LeadAssigner, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, assigner: assigner, log: log}
	mux.HandleFunc(TaskAssignBatch, w.handleAssignBatch)
	mux.HandleFunc(TaskAssignOpen, w.handleAssignOpen)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleAssignBatch is safe to retry: leads already assigned and coded are
// left as they are.
func (w *Worker) handleAssignBatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAssignBatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ids, err := parseLeadIDs(payload.LeadIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	actorID, err := parseActor(payload.ActorID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	assigned, err := w.assigner.AssignMany(ctx, ids, payload.Concurrency, actorID)
	if err != nil {
		return err
	}
	w.log.Info("assignment batch processed", "requested", len(ids), "assigned", len(assigned))
	return nil
}

func (w *Worker) handleAssignOpen(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAssignOpenPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	actorID, err := parseActor(payload.ActorID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	assigned, err := w.assigner.AssignOpenLeads(ctx, actorID)
	if err != nil {
		return err
	}
	w.log.Info("open lead sweep processed", "assigned", len(assigned))
	return nil
}

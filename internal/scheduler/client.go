package scheduler

import (
	"context"
	"fmt"

	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/redisconn"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AssignmentQueue offloads assignment batches to the worker.
type AssignmentQueue interface {
	EnqueueAssignBatch(ctx context.Context, leadIDs []uuid.UUID, concurrency int, actorID *uuid.UUID) (string, error)
	EnqueueAssignOpen(ctx context.Context, actorID *uuid.UUID) (string, error)
}

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueAssignBatch(ctx context.Context, leadIDs []uuid.UUID, concurrency int, actorID *uuid.UUID) (string, error) {
	task, err := NewAssignBatchTask(AssignBatchPayload{LeadIDs: formatIDs(leadIDs), Concurrency: concurrency, ActorID: actorString(actorID)})
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueAssignOpen(ctx context.Context, actorID *uuid.UUID) (string, error) {
	task, err := NewAssignOpenTask(AssignOpenPayload{ActorID: actorString(actorID)})
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func actorString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := redisconn.Options(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

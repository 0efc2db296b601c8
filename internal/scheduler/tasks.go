package scheduler

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskAssignBatch = "leads.assign_batch"

const TaskAssignOpen = "leads.assign_open"

type AssignBatchPayload struct {
	LeadIDs     []string `json:"leadIds"`
	Concurrency int      `json:"concurrency,omitempty"`
	ActorID     string   `json:"actorId,omitempty"`
}

type AssignOpenPayload struct {
	ActorID string `json:"actorId,omitempty"`
}

func NewAssignBatchTask(payload AssignBatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignBatch, data), nil
}

func ParseAssignBatchPayload(task *asynq.Task) (AssignBatchPayload, error) {
	var payload AssignBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AssignBatchPayload{}, err
	}
	return payload, nil
}

func NewAssignOpenTask(payload AssignOpenPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignOpen, data), nil
}

func ParseAssignOpenPayload(task *asynq.Task) (AssignOpenPayload, error) {
	var payload AssignOpenPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AssignOpenPayload{}, err
	}
	return payload, nil
}

// parseActor returns nil for an empty id, which journals as the system.
func parseActor(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseLeadIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

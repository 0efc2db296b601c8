package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/assignment"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/internal/leads/lifecycle"
	"ipkwealth_backend/internal/leads/memstore"
	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testEnv struct {
	engine  *gin.Engine
	store   *memstore.Store
	handler *Handler
	actor   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	store := memstore.New()
	alloc := sequence.New(sequence.NewMemoryStore(), log)
	svc := lifecycle.New(lifecycle.Deps{
		Repo:     store,
		Assigner: assignment.NewRoundRobin(store, alloc, time.Now, log),
		Counter:  alloc,
		Journal:  journal.New(store, nil, time.Now, nil, log),
		Bus:      events.NewInMemoryBus(log),
		Log:      log,
	})

	env := &testEnv{store: store, actor: uuid.New()}
	env.handler = New(svc, validator.New(), nil)
	env.engine = gin.New()
	group := env.engine.Group("/leads", func(c *gin.Context) {
		c.Set(httpkit.ContextActorKey, httpkit.Actor{ID: env.actor})
		c.Next()
	})
	env.handler.RegisterRoutes(group)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateThenReenter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "+91 98765 43210", "leadSource": "website", "name": "Asha"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[transport.IntakeResponse](t, rec)
	if first.Merged || first.Lead.Status != "OPEN" {
		t.Fatalf("unexpected intake %+v", first)
	}

	rec = env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "919876543210", "leadSource": "ads"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-entry, got %d", rec.Code)
	}
	second := decode[transport.IntakeResponse](t, rec)
	if !second.Merged || second.Lead.ID != first.Lead.ID || second.Lead.ReenterCount != 1 {
		t.Fatalf("expected merge into %s, got %+v", first.Lead.ID, second)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/leads", map[string]any{"leadSource": "website"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[httpkit.ErrorResponse](t, rec)
	details, _ := body.Details.(map[string]any)
	if body.Error != msgValidationFailed || details["phone"] != "required" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestAssignWithoutRMsIsPreconditionFailed(t *testing.T) {
	env := newTestEnv(t)
	created := decode[transport.IntakeResponse](t, env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "9000000001", "leadSource": "web"}))

	rec := env.do(t, http.MethodPost, "/leads/"+created.Lead.ID.String()+"/assign", nil)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d: %s", rec.Code, rec.Body.String())
	}

	env.store.PutUser(domain.User{ID: uuid.New(), Name: "Meera", Role: domain.RoleRM, Status: domain.UserStatusActive, CreatedAt: time.Now()})
	rec = env.do(t, http.MethodPost, "/leads/"+created.Lead.ID.String()+"/assign", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	lead := decode[transport.LeadResponse](t, rec)
	if lead.LeadCode == nil || !strings.HasPrefix(*lead.LeadCode, "IPK") || lead.Status != "ASSIGNED" {
		t.Fatalf("unexpected assigned lead %+v", lead)
	}
	if lead.AssignedRM == nil || *lead.AssignedRM != "Meera" {
		t.Fatalf("expected Meera, got %v", lead.AssignedRM)
	}
}

func TestGetByIDErrors(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/leads/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/leads/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decode[httpkit.ErrorResponse](t, rec); body.Code != "NOT_FOUND" {
		t.Fatalf("unexpected code %s", body.Code)
	}
}

type fakeQueue struct {
	batch []uuid.UUID
	width int
	actor *uuid.UUID
}

func (q *fakeQueue) EnqueueAssignBatch(_ context.Context, ids []uuid.UUID, concurrency int, actorID *uuid.UUID) (string, error) {
	q.batch = ids
	q.width = concurrency
	q.actor = actorID
	return "task-1", nil
}

func (q *fakeQueue) EnqueueAssignOpen(context.Context, *uuid.UUID) (string, error) {
	return "task-2", nil
}

func TestAssignManyAsync(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"leadIds": []string{uuid.NewString()}, "async": true, "concurrency": 4}

	if rec := env.do(t, http.MethodPost, "/leads/assign", body); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a queue, got %d", rec.Code)
	}

	q := &fakeQueue{}
	env.handler.SetAssignmentQueue(q)
	rec := env.do(t, http.MethodPost, "/leads/assign", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	queued := decode[transport.QueuedResponse](t, rec)
	if queued.TaskID != "task-1" || queued.Queued != 1 || len(q.batch) != 1 {
		t.Fatalf("unexpected queue result %+v / %v", queued, q.batch)
	}
	if q.actor == nil || *q.actor != env.actor {
		t.Fatal("actor should travel with the task")
	}
	if q.width != 4 {
		t.Fatalf("expected concurrency 4 on the task, got %d", q.width)
	}

	body["concurrency"] = 500
	if rec := env.do(t, http.MethodPost, "/leads/assign", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for concurrency over the cap, got %d", rec.Code)
	}
}

func TestAssignManySkipsUnknownLeads(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutUser(domain.User{ID: uuid.New(), Name: "Meera", Role: domain.RoleRM, Status: domain.UserStatusActive, CreatedAt: time.Now()})
	created := decode[transport.IntakeResponse](t, env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "9000000002", "leadSource": "web"}))

	rec := env.do(t, http.MethodPost, "/leads/assign", map[string]any{"leadIds": []string{created.Lead.ID.String(), uuid.NewString()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[transport.AssignmentBatchResponse](t, rec)
	if resp.Requested != 2 || len(resp.Items) != 1 || resp.Items[0].ID != created.Lead.ID {
		t.Fatalf("unexpected batch %+v", resp)
	}
}

func TestNoteAppearsInEventsWithAuthor(t *testing.T) {
	env := newTestEnv(t)
	created := decode[transport.IntakeResponse](t, env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "9000000003", "leadSource": "web"}))
	base := "/leads/" + created.Lead.ID.String()

	rec := env.do(t, http.MethodPost, base+"/notes", map[string]any{"text": "called, no answer", "tags": []string{"CALL"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, base+"/events?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[struct {
		Items []transport.EventResponse `json:"items"`
	}](t, rec)
	if len(list.Items) != 2 {
		t.Fatalf("expected intake + note events, got %d", len(list.Items))
	}
	var note *transport.EventResponse
	for i := range list.Items {
		if list.Items[i].Type == string(domain.EventNote) {
			note = &list.Items[i]
		}
	}
	if note == nil || note.Text != "called, no answer" || note.AuthorID == nil || *note.AuthorID != env.actor {
		t.Fatalf("unexpected note event %+v", note)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	env := newTestEnv(t)
	created := decode[transport.IntakeResponse](t, env.do(t, http.MethodPost, "/leads", map[string]any{"phone": "9000000004", "leadSource": "web"}))

	rec := env.do(t, http.MethodPatch, "/leads/"+created.Lead.ID.String()+"/status", map[string]any{"status": "LOST"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/leads/"+created.Lead.ID.String()+"/status", map[string]any{"status": "ON_HOLD"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if lead := decode[transport.LeadResponse](t, rec); lead.Status != "ON_HOLD" {
		t.Fatalf("unexpected status %s", lead.Status)
	}
}

// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that wires persistence, assignment and the
// journal behind the HTTP handler.
package leads

import (
	"time"

	"ipkwealth_backend/internal/events"
	apphttp "ipkwealth_backend/internal/http"
	"ipkwealth_backend/internal/leads/assignment"
	"ipkwealth_backend/internal/leads/handler"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/internal/leads/lifecycle"
	"ipkwealth_backend/internal/leads/memstore"
	"ipkwealth_backend/internal/leads/repository"
	"ipkwealth_backend/internal/scheduler"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"
	"ipkwealth_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Store is everything the module needs from persistence. Both the Postgres
// repository and the in-memory store satisfy it.
type Store interface {
	lifecycle.Repository
	assignment.Roster
	journal.Store
}

// ModuleConfig combines the config interfaces the module reads.
type ModuleConfig interface {
	config.LeadsConfig
	config.SequenceConfig
	config.HTTPConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *lifecycle.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(store Store, counters sequence.Store, eventBus events.Bus, m *metrics.Metrics, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) *Module {
	allocator := sequence.New(counters, log,
		sequence.WithBackoff(cfg.GetSequenceMaxAttempts(), cfg.GetSequenceBaseDelay(), cfg.GetSequenceMaxDelay()),
		sequence.WithMetrics(m),
	)

	svc := lifecycle.New(lifecycle.Deps{
		Repo:              store,
		Assigner:          assignment.NewRoundRobin(store, allocator, time.Now, log),
		Counter:           allocator,
		Journal:           journal.New(store, nil, time.Now, m, log),
		Bus:               eventBus,
		Metrics:           m,
		Log:               log,
		CodeLocation:      cfg.GetLeadCodeLocation(),
		AssignConcurrency: cfg.GetAssignConcurrency(),
	})

	var bulkLimit gin.HandlerFunc
	if cfg.GetBulkImportRate() > 0 {
		limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetBulkImportRate()), max(cfg.GetBulkImportBurst(), 1), log)
		bulkLimit = limiter.RateLimit()
	}

	return &Module{
		handler: handler.New(svc, val, bulkLimit),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lifecycle service for the scheduler worker and cmds.
func (m *Module) Service() *lifecycle.Service {
	return m.service
}

// SetAssignmentQueue enables async assignment endpoints.
func (m *Module) SetAssignmentQueue(queue scheduler.AssignmentQueue) {
	m.handler.SetAssignmentQueue(queue)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Compile-time checks
var (
	_ apphttp.Module = (*Module)(nil)
	_ Store          = (*repository.Repository)(nil)
	_ Store          = (*memstore.Store)(nil)
)

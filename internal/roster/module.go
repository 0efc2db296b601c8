package roster

import (
	apphttp "ipkwealth_backend/internal/http"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/validator"
)

// Module mounts the RM roster under /rms.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(store Store, val *validator.Validator, log *logger.Logger) *Module {
	svc := New(store, log)
	return &Module{handler: NewHandler(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "roster"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/rms"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/rms"))
}

var _ apphttp.Module = (*Module)(nil)

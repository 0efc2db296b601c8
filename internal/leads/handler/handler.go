package handler

import (
	"net/http"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/lifecycle"
	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/internal/scheduler"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc         *lifecycle.Service
	val         *validator.Validator
	queue       scheduler.AssignmentQueue
	bulkLimiter gin.HandlerFunc
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New builds the handler. bulkLimiter guards the bulk import route and may be nil.
func New(svc *lifecycle.Service, val *validator.Validator, bulkLimiter gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, val: val, bulkLimiter: bulkLimiter}
}

// SetAssignmentQueue enables background assignment. Without it, async
// requests are rejected.
func (h *Handler) SetAssignmentQueue(queue scheduler.AssignmentQueue) {
	h.queue = queue
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	if h.bulkLimiter != nil {
		rg.POST("/bulk", h.bulkLimiter, h.CreateBulk)
	} else {
		rg.POST("/bulk", h.CreateBulk)
	}
	rg.GET("/open", h.ListOpen)
	rg.POST("/assign", h.AssignMany)
	rg.POST("/assign-open", h.AssignOpen)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/assign", h.Assign)
	rg.PUT("/:id/rm", h.Reassign)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.PATCH("/:id/remark", h.UpdateRemark)
	rg.PATCH("/:id/bio", h.UpdateBio)
	rg.PUT("/:id/client-qa", h.UpdateClientQA)
	rg.POST("/:id/stage", h.ChangeStage)
	rg.PATCH("/:id/archive", h.Archive)
	rg.GET("/:id/phones", h.ListPhones)
	rg.POST("/:id/phones", h.AddPhone)
	rg.DELETE("/phones/:phoneId", h.RemovePhone)
	rg.POST("/phones/:phoneId/primary", h.MarkPrimaryPhone)
	rg.PATCH("/phones/:phoneId/whatsapp", h.SetWhatsapp)
	rg.GET("/:id/events", h.ListEvents)
	rg.POST("/:id/notes", h.AddNote)
	rg.POST("/:id/interactions", h.AddInteraction)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CreatePendingLead(c.Request.Context(), transport.ToLeadInput(req), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Merged {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.IntakeResponse{Lead: transport.ToLeadResponse(result.Lead), Merged: result.Merged})
}

func (h *Handler) CreateBulk(c *gin.Context) {
	var req transport.BulkCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inputs := make([]domain.LeadInput, len(req.Rows))
	for i, row := range req.Rows {
		inputs[i] = transport.ToLeadInput(row)
	}

	result, err := h.svc.CreateLeadsBulk(c.Request.Context(), inputs, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	page, err := h.svc.ListLeads(c.Request.Context(), transport.ToLeadFilter(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadListResponse(page))
}

func (h *Handler) ListOpen(c *gin.Context) {
	leads, err := h.svc.LeadsOpen(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToLeadResponses(leads)})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.svc.Assign(c.Request.Context(), id, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) AssignMany(c *gin.Context) {
	var req transport.AssignManyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if req.Async {
		if h.queue == nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "background assignment is not configured", nil)
			return
		}
		taskID, err := h.queue.EnqueueAssignBatch(c.Request.Context(), req.LeadIDs, req.Concurrency, httpkit.ActorID(c))
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.QueuedResponse{TaskID: taskID, Queued: len(req.LeadIDs)})
		return
	}

	leads, err := h.svc.AssignMany(c.Request.Context(), req.LeadIDs, req.Concurrency, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignmentBatchResponse{Items: transport.ToLeadResponses(leads), Requested: len(req.LeadIDs)})
}

func (h *Handler) AssignOpen(c *gin.Context) {
	if c.Query("async") == "true" {
		if h.queue == nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "background assignment is not configured", nil)
			return
		}
		taskID, err := h.queue.EnqueueAssignOpen(c.Request.Context(), httpkit.ActorID(c))
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.QueuedResponse{TaskID: taskID})
		return
	}

	leads, err := h.svc.AssignOpenLeads(c.Request.Context(), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignmentBatchResponse{Items: transport.ToLeadResponses(leads), Requested: len(leads)})
}

func (h *Handler) Reassign(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.ReassignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Reassign(c.Request.Context(), id, req.RmID, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

package roster

import (
	"net/http"
	"strconv"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type RMResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          *string    `json:"email,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastAssignedAt *time.Time `json:"lastAssignedAt,omitempty"`
	OpenLeads      int        `json:"openLeads"`
	TotalLeads     int        `json:"totalLeads"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListActive)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/leads", h.Leads)
}

// RegisterAdminRoutes mounts the routes that change the roster.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/:id/status", h.SetStatus)
}

func (h *Handler) ListActive(c *gin.Context) {
	rms, err := h.svc.ActiveRMs(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]RMResponse, len(rms))
	for i, rm := range rms {
		items[i] = toRMResponse(rm)
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rm, err := h.svc.GetRM(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRMResponse(rm))
}

func (h *Handler) Leads(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	includeArchived, _ := strconv.ParseBool(c.DefaultQuery("includeArchived", "false"))

	leads, err := h.svc.RMLeads(c.Request.Context(), id, includeArchived)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToLeadResponses(leads)})
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	user, err := h.svc.SetRMStatus(c.Request.Context(), id, domain.UserStatus(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRMResponse(domain.RMWorkload{User: user}))
}

func toRMResponse(rm domain.RMWorkload) RMResponse {
	return RMResponse{
		ID:             rm.User.ID,
		Name:           rm.User.Name,
		Email:          rm.User.Email,
		Status:         string(rm.User.Status),
		CreatedAt:      rm.User.CreatedAt,
		LastAssignedAt: rm.User.LastAssignedAt,
		OpenLeads:      rm.OpenLeads,
		TotalLeads:     rm.TotalLeads,
	}
}

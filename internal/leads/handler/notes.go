package handler

import (
	"net/http"

	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/sanitize"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	events, err := h.svc.GetEvents(c.Request.Context(), id, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToEventResponses(events)})
}

func (h *Handler) AddNote(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.TextEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	event, err := h.svc.AddNote(c.Request.Context(), id, sanitize.Text(req.Text), req.Tags, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToEventResponse(event))
}

func (h *Handler) AddInteraction(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.TextEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	event, err := h.svc.AddInteraction(c.Request.Context(), id, sanitize.Text(req.Text), req.Tags, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToEventResponse(event))
}

package handler

import (
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/platform/httpkit"
	"ipkwealth_backend/platform/sanitize"

	"github.com/gin-gonic/gin"
)

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.LeadStatus(req.Status), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateRemark(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateRemarkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.UpdateRemark(c.Request.Context(), id, sanitize.TextPtr(req.Remark), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateBio(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateBioRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.UpdateBio(c.Request.Context(), id, sanitize.TextPtr(req.BioText), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateClientQA(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateClientQARequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.UpdateClientQA(c.Request.Context(), id, transport.ToQAItems(req.Items), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) ChangeStage(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.ChangeStageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.ChangeStage(c.Request.Context(), transport.ToChangeStageInput(id, req), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.ArchiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Archive(c.Request.Context(), id, req.Archived, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

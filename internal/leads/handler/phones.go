package handler

import (
	"net/http"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/transport"
	"ipkwealth_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPhones(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	phones, err := h.svc.GetPhones(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToPhoneResponses(phones)})
}

func (h *Handler) AddPhone(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.AddPhoneRequest
	if !h.bindJSON(c, &req) {
		return
	}

	phone, err := h.svc.AddPhone(c.Request.Context(), id, domain.NewPhone{
		Label:      domain.PhoneLabel(req.Label),
		Number:     req.Number,
		IsPrimary:  req.IsPrimary,
		IsWhatsapp: req.IsWhatsapp,
	}, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToPhoneResponse(phone))
}

func (h *Handler) RemovePhone(c *gin.Context) {
	phoneID, ok := parseUUIDParam(c, "phoneId")
	if !ok {
		return
	}

	phones, err := h.svc.RemovePhone(c.Request.Context(), phoneID, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToPhoneResponses(phones)})
}

func (h *Handler) MarkPrimaryPhone(c *gin.Context) {
	phoneID, ok := parseUUIDParam(c, "phoneId")
	if !ok {
		return
	}

	phones, err := h.svc.MarkPrimaryPhone(c.Request.Context(), phoneID, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToPhoneResponses(phones)})
}

func (h *Handler) SetWhatsapp(c *gin.Context) {
	phoneID, ok := parseUUIDParam(c, "phoneId")
	if !ok {
		return
	}
	var req transport.SetWhatsappRequest
	if !h.bindJSON(c, &req) {
		return
	}

	phone, err := h.svc.SetWhatsapp(c.Request.Context(), phoneID, req.Enabled, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPhoneResponse(phone))
}

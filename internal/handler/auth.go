package handler

import (
	"net/http"

	"staffdesk/internal/apierror"
	"staffdesk/internal/dto"
	"staffdesk/internal/metrics"
	"staffdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc     service.AuthService
	metrics *metrics.Metrics
}

func NewAuthHandler(svc service.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{svc: svc, metrics: m}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	h.metrics.AuthEvent("register", apierror.Outcome(err))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	h.metrics.AuthEvent("login", apierror.Outcome(err))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	resp, err := h.svc.Me(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Authenticated", "account": resp})
}

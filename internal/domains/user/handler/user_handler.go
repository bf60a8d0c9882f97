package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grimoire-backend/internal/domains/user/model"
	"grimoire-backend/internal/domains/user/service"
	"grimoire-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Signup - POST /v1/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	u, err := h.service.Signup(c.Request.Context(), req)
	if model.HandleUserError(c, err) {
		return
	}

	response.Success(c, http.StatusCreated, u)
}

// Login - POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if model.HandleUserError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, res)
}

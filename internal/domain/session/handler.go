package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.GET("/me", h.ListMine)
		sessions.PATCH("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}

	sess, err := h.service.Create(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		h.fail(c, err, "Failed to create session")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

func (h *Handler) ListMine(c *gin.Context) {
	rows, err := h.service.ListMine(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.fail(c, err, "Failed to list sessions")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": rows})
}

func (h *Handler) Cancel(c *gin.Context) {
	sess, err := h.service.Cancel(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		h.fail(c, err, "Failed to cancel session")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	var se *Error
	if errors.As(err, &se) {
		response.Error(c, se.Status, se.Code, se.Message)
		return
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternal, fallback)
}

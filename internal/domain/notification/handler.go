package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", h.List)
		notifGroup.GET("/unread-count", h.UnreadCount)
		notifGroup.PATCH("/:id/read", h.MarkAsRead)
		notifGroup.POST("/read-all", h.MarkAllAsRead)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}
	response.Success(c, http.StatusOK, page)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated")
		return
	}

	n, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to count notifications")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unreadCount": n})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated")
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid notification id")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "Notification not found")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark notification as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "isRead": true})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated")
		return
	}

	n, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark notifications as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": n})
}

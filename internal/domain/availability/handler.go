package availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/response"
	"skillswap/internal/wizard"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public read routes on rg and the schedule editor
// on protected, which must carry auth and the teacher role check.
func (h *Handler) RegisterRoutes(rg, protected *gin.RouterGroup) {
	protected.PUT("/availability/me", h.SetMine)
	rg.GET("/availability/:teacherId", h.GetWeekly)
	rg.GET("/availability/:teacherId/slots", h.GetSlots)
}

func (h *Handler) GetWeekly(c *gin.Context) {
	rows, err := h.service.GetWeekly(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to load availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "availability": rows})
}

func (h *Handler) GetSlots(c *gin.Context) {
	date, err := wizard.ParseDate(c.Query("date"), h.service.Location())
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "date must be YYYY-MM-DD")
		return
	}

	duration := wizard.DefaultDuration
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "duration must be a positive number of minutes")
			return
		}
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), c.Param("teacherId"), date, duration)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to load available slots")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"date":           date.Format(wizard.DateLayout),
		"duration":       duration,
		"availableSlots": slots,
	})
}

func (h *Handler) SetMine(c *gin.Context) {
	teacherID := c.GetString("user_id")
	if teacherID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	var req SetWeeklyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request body")
		return
	}

	rows, err := h.service.SetWeekly(c.Request.Context(), teacherID, req)
	if err != nil {
		var fe *FieldErrors
		switch {
		case errors.As(err, &fe):
			response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid availability", fe.Fields)
		case errors.Is(err, ErrDuplicateDay), errors.Is(err, ErrWindow):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to save availability")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "availability": rows})
}

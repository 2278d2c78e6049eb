package wizard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skillswap/internal/backend"
	"skillswap/internal/pkg/response"
	core "skillswap/internal/wizard"
)

const submitTimeout = 30 * time.Second

type Handler struct {
	registry *Registry
	hub      *Hub
	upgrader *websocket.Upgrader
	loc      *time.Location
	log      *zap.Logger
}

func NewHandler(registry *Registry, hub *Hub, upgrader *websocket.Upgrader, loc *time.Location, log *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{registry: registry, hub: hub, upgrader: upgrader, loc: loc, log: log}
}

// RegisterRoutes mounts the REST routes on rg (JWT protected) and the
// websocket route on ws (query token auth).
func (h *Handler) RegisterRoutes(rg, ws *gin.RouterGroup) {
	wizards := rg.Group("/wizards")
	{
		wizards.POST("", h.Open)
		wizards.GET("/:id", h.Get)
		wizards.POST("/:id/date", h.SelectDate)
		wizards.POST("/:id/time", h.SelectTime)
		wizards.POST("/:id/duration", h.SetDuration)
		wizards.POST("/:id/continue", h.Continue)
		wizards.POST("/:id/back", h.Back)
		wizards.POST("/:id/confirm", h.Confirm)
		wizards.DELETE("/:id", h.Close)
	}
	ws.GET("/wizards/:id", h.Subscribe)
}

type openRequest struct {
	Teacher core.Teacher `json:"teacher" binding:"required"`
	Skill   core.Skill   `json:"skill" binding:"required"`
}

type dateRequest struct {
	Date string `json:"date" binding:"required"`
}

type timeRequest struct {
	StartTime string `json:"startTime" binding:"required"`
}

type durationRequest struct {
	Duration int `json:"duration" binding:"required"`
}

func (h *Handler) Open(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "teacher and skill are required")
		return
	}
	if req.Skill.TokensPerHour < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "tokensPerHour must not be negative")
		return
	}

	id, w := h.registry.Create(c.Request.Context(), c.GetString("user_id"), req.Teacher, req.Skill)
	c.Header("Location", "/api/v1/wizards/"+id)
	response.Success(c, http.StatusCreated, gin.H{"id": id, "wizard": w.Snapshot()})
}

func (h *Handler) Get(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	h.ok(c, w)
}

func (h *Handler) SelectDate(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "date is required")
		return
	}
	date, err := core.ParseDate(req.Date, h.loc)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "date must be YYYY-MM-DD")
		return
	}
	h.result(c, w, w.SelectDate(c.Request.Context(), date))
}

func (h *Handler) SelectTime(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	var req timeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "startTime is required")
		return
	}
	h.result(c, w, w.SelectTime(req.StartTime))
}

func (h *Handler) SetDuration(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "duration is required")
		return
	}
	h.result(c, w, w.SetDuration(req.Duration))
}

func (h *Handler) Continue(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	h.result(c, w, w.Continue())
}

func (h *Handler) Back(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	h.result(c, w, w.Back())
}

func (h *Handler) Confirm(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}

	// the booking must not be abandoned halfway if the client goes away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), submitTimeout)
	defer cancel()

	conf, err := w.Confirm(ctx)
	if err != nil {
		h.result(c, w, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"confirmation": conf, "wizard": w.Snapshot()})
}

func (h *Handler) Close(c *gin.Context) {
	err := h.registry.Remove(c.Param("id"), c.GetString("user_id"))
	if err != nil {
		h.lookupFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe upgrades to a websocket that streams the wizard's snapshots.
func (h *Handler) Subscribe(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetString("user_id")
	w, err := h.registry.Get(id, userID)
	if err != nil {
		h.lookupFailed(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("wizard_id", id), zap.Error(err))
		return
	}
	h.hub.ServeWS(conn, userID, id, &Event{Type: EventState, WizardID: id, Payload: w.Snapshot()})
}

func (h *Handler) lookup(c *gin.Context) (*core.Wizard, bool) {
	w, err := h.registry.Get(c.Param("id"), c.GetString("user_id"))
	if err != nil {
		h.lookupFailed(c, err)
		return nil, false
	}
	return w, true
}

func (h *Handler) lookupFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Wizard not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Wizard belongs to another user")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Wizard lookup failed")
	}
}

func (h *Handler) ok(c *gin.Context, w *core.Wizard) {
	response.Success(c, http.StatusOK, gin.H{"wizard": w.Snapshot()})
}

// result answers with the snapshot, or maps a wizard error to a status. The
// snapshot travels in error details so clients can re-render from it.
func (h *Handler) result(c *gin.Context, w *core.Wizard, err error) {
	if err == nil {
		h.ok(c, w)
		return
	}

	snap := w.Snapshot()
	status, code, msg := mapError(err)
	if snap.Notice != nil && snap.Notice.Kind == core.NoticeError {
		msg = snap.Notice.Message
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.ErrorWithDetails(c, status, code, msg, gin.H{"wizard": snap})
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, core.ErrPastDate):
		return http.StatusUnprocessableEntity, "PAST_DATE", core.MsgFutureDate
	case errors.Is(err, core.ErrDayUnavailable):
		return http.StatusUnprocessableEntity, "DAY_UNAVAILABLE", core.MsgTeacherUnavail
	case errors.Is(err, core.ErrSlotNotOffered):
		return http.StatusUnprocessableEntity, "SLOT_NOT_OFFERED", "Selected time is not available"
	case errors.Is(err, core.ErrInvalidDuration):
		return http.StatusUnprocessableEntity, "INVALID_DURATION", "Duration must be 60, 90 or 120 minutes"
	case errors.Is(err, core.ErrClosed):
		return http.StatusConflict, "WIZARD_CLOSED", "Booking wizard is closed"
	case errors.Is(err, core.ErrWrongStep):
		return http.StatusConflict, "WRONG_STEP", "Action not allowed at this step"
	case errors.Is(err, core.ErrSubmitInProgress):
		return http.StatusConflict, "SUBMIT_IN_PROGRESS", "Booking is already being submitted"
	case errors.Is(err, core.ErrSubmitFailed):
		return submitStatus(err), "BOOKING_FAILED", core.MsgBookFailed
	default:
		return http.StatusInternalServerError, response.CodeInternal, "Unexpected wizard error"
	}
}

type statusError interface {
	error
	HTTPStatus() int
}

// submitStatus passes backend 4xx answers through and reports everything
// else as a bad gateway.
func submitStatus(err error) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	var se statusError
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return http.StatusBadGateway
}

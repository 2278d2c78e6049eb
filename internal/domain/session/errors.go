package session

import "net/http"

// Error is a session failure with the status and message shown to callers.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) UserMessage() string {
	return e.Message
}

func (e *Error) HTTPStatus() int {
	return e.Status
}

var (
	ErrUnauthenticated    = &Error{http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"}
	ErrInvalidDuration    = &Error{http.StatusBadRequest, "VALIDATION_ERROR", "Duration must be 60, 90 or 120 minutes"}
	ErrInvalidTokens      = &Error{http.StatusBadRequest, "VALIDATION_ERROR", "Token amount must be positive"}
	ErrPastStart          = &Error{http.StatusBadRequest, "VALIDATION_ERROR", "Session must be scheduled in the future"}
	ErrMissingTeacher     = &Error{http.StatusBadRequest, "VALIDATION_ERROR", "Teacher and skill are required"}
	ErrSelfBooking        = &Error{http.StatusBadRequest, "VALIDATION_ERROR", "You cannot book a session with yourself"}
	ErrSlotTaken          = &Error{http.StatusConflict, "SESSION_CONFLICT", "Teacher already has a session at this time"}
	ErrInsufficientTokens = &Error{http.StatusPaymentRequired, "INSUFFICIENT_BALANCE", "Insufficient token balance"}
	ErrNotFound           = &Error{http.StatusNotFound, "NOT_FOUND", "Session not found"}
	ErrForbidden          = &Error{http.StatusForbidden, "FORBIDDEN", "You cannot change this session"}
	ErrNotCancellable     = &Error{http.StatusConflict, "INVALID_STATUS", "Only scheduled sessions can be cancelled"}
)

package wizard

import "errors"

var (
	ErrClosed           = errors.New("wizard is closed")
	ErrWrongStep        = errors.New("action not allowed at current step")
	ErrPastDate         = errors.New("date is in the past")
	ErrDayUnavailable   = errors.New("teacher is not available on this date")
	ErrSlotNotOffered   = errors.New("time slot is not offered")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrSubmitInProgress = errors.New("booking submission already in progress")
	ErrSubmitFailed     = errors.New("booking submission failed")
)

const (
	MsgFutureDate        = "Please select a future date"
	MsgTeacherUnavail    = "Teacher is not available on this date"
	MsgBookFailed        = "Failed to book session"
	MsgAvailabilityError = "Could not load teacher availability"
	MsgSlotsError        = "Could not load available time slots"
)

// MessageError lets collaborators expose a user-facing message (for example the
// backend's error body) that Confirm shows verbatim.
type MessageError interface {
	error
	UserMessage() string
}

func userMessage(err error, fallback string) string {
	var me MessageError
	if errors.As(err, &me) && me.UserMessage() != "" {
		return me.UserMessage()
	}
	return fallback
}

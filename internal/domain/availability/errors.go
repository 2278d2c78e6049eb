package availability

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrDuplicateDay = errors.New("day of week listed more than once")
	ErrWindow       = errors.New("end time must be after start time")
)

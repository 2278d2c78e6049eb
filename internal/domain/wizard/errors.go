package wizard

import "errors"

var (
	ErrNotFound  = errors.New("wizard not found")
	ErrForbidden = errors.New("wizard belongs to another user")
)

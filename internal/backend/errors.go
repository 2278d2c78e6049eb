package backend

import (
	"errors"
	"fmt"
)

var (
	ErrCreateRequest  = errors.New("backend: failed to create request")
	ErrSendRequest    = errors.New("backend: failed to send request")
	ErrDecodeResponse = errors.New("backend: failed to decode response")
)

// APIError is a non-2xx answer from the SkillSwap backend.
type APIError struct {
	Status   int
	Message  string
	Resource string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s: status %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Resource, e.Status, e.Message)
}

// UserMessage is the backend's own message, shown to the user as is.
func (e *APIError) UserMessage() string {
	return e.Message
}

func wrap(sentinel error, resource string, err error) error {
	return fmt.Errorf("%w (%s): %w", sentinel, resource, err)
}

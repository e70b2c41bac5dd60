package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/castrelay/internal/domain"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrRoleMismatch = errors.New("offer from a connection that is not the room sender")
)

// MissingFieldError rejects a message before any state is touched.
type MissingFieldError struct {
	Type  domain.MessageType
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Type, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

func missing(t domain.MessageType, field string) error {
	return &MissingFieldError{Type: t, Field: field}
}

package validation

import (
	"errors"

	"chatrelay/pkg/models"
)

// Validation failures for the two mutation endpoints. Handlers translate
// these into client-visible 400 responses; they never reach the store or
// the fanout path.
var (
	ErrInvalidMessage   = errors.New("message requires a username and a text or image body")
	ErrUsernameRequired = errors.New("username required")
)

// ValidateMessage enforces the ingress invariant: every accepted message
// carries a username and at least one of text/image. Nothing else is
// checked; payload size and content are deliberately unconstrained.
func ValidateMessage(m models.Message) error {
	if m.Username == "" {
		return ErrInvalidMessage
	}
	if m.Message == "" && m.Image == "" {
		return ErrInvalidMessage
	}
	return nil
}

// ValidateGroupUpdate requires a username identifying the requester. The
// identity is taken at face value; there is no authentication.
func ValidateGroupUpdate(u models.GroupUpdate) error {
	if u.Username == "" {
		return ErrUsernameRequired
	}
	return nil
}

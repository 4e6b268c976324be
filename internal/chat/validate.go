package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports a malformed message field. It is returned before
// any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// Validate checks the fields a caller must supply on every message.
func (m Message) Validate() error {
	switch m.Sender {
	case SenderUser, SenderBot:
	case "":
		return &ValidationError{Field: "sender", Reason: "is required"}
	default:
		return &ValidationError{Field: "sender", Reason: fmt.Sprintf("must be %q or %q", SenderUser, SenderBot)}
	}
	if strings.TrimSpace(m.Text) == "" {
		return &ValidationError{Field: "text", Reason: "is required"}
	}
	if strings.TrimSpace(m.DisplayTime) == "" {
		return &ValidationError{Field: "time", Reason: "is required"}
	}
	return nil
}

// ValidUserID reports whether s is a well-formed user identifier. User ids
// are UUIDs issued at signup.
func ValidUserID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}

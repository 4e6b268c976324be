package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/concierge/internal/chat"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage     MessageType = "user_message"
	TypeTranscriptEvent MessageType = "message"
	TypeTurnComplete    MessageType = "turn_complete"
	TypeErrorEvent      MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is the client's chat input for one turn.
type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

// TranscriptEvent announces a message newly visible in the transcript, bot
// or user.
type TranscriptEvent struct {
	Type      MessageType  `json:"type"`
	SessionID string       `json:"session_id"`
	Message   chat.Message `json:"message"`
}

// TurnComplete marks the end of one turn. Warning is set when persistence
// partially failed; the turn itself still completed.
type TurnComplete struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Skipped   bool        `json:"skipped,omitempty"`
	Warning   string      `json:"warning,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.SessionID) == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","session_id":"s1","text":"Hi"}`)
	parsed, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	msg, ok := parsed.(UserMessage)
	if !ok {
		t.Fatalf("parsed type = %T, want UserMessage", parsed)
	}
	if msg.SessionID != "s1" || msg.Text != "Hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseClientMessageRejectsMissingSession(t *testing.T) {
	raw := []byte(`{"type":"user_message","text":"Hi"}`)
	if _, err := ParseClientMessage(raw); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want non-nil")
	}
}

func TestParseClientMessageUnsupportedType(t *testing.T) {
	raw := []byte(`{"type":"audio_chunk","session_id":"s1"}`)
	_, err := ParseClientMessage(raw)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseClientMessage() error = %v, want %v", err, ErrUnsupportedType)
	}
}

func TestParseClientMessageInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte("{")); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want non-nil")
	}
}

package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request carries one user turn to the AI responder.
type Request struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	UserText  string `json:"userText"`
}

// Response is the responder's reply text.
type Response struct {
	BotText string `json:"botResponse"`
}

// Responder is the text-in/text-out boundary to the AI service. Any failure
// contacting it is absorbed upstream into a fallback message, so callers
// never surface these errors to end users.
type Responder interface {
	Reply(ctx context.Context, req Request) (Response, error)
}

// Config controls responder construction.
type Config struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

func New(cfg Config) (Responder, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPResponder(cfg.URL, cfg.Timeout), nil
		}
		return NewMockResponder(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("responder URL is required for http mode")
		}
		return NewHTTPResponder(cfg.URL, cfg.Timeout), nil
	case "mock":
		return NewMockResponder(), nil
	default:
		return nil, fmt.Errorf("unsupported responder mode %q", cfg.Mode)
	}
}

package responder

import (
	"context"
	"fmt"
	"strings"
)

// MockResponder provides deterministic local replies when no AI endpoint is
// configured.
type MockResponder struct{}

func NewMockResponder() *MockResponder { return &MockResponder{} }

func (r *MockResponder) Reply(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	text := strings.TrimSpace(req.UserText)
	if text == "" {
		return Response{BotText: "I am listening."}, nil
	}
	return Response{BotText: fmt.Sprintf("You said: %s. How else can I help?", text)}, nil
}

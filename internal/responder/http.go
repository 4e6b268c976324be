package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPResponder forwards user text to a remote generation endpoint speaking
// the {userText} -> {botResponse} wire format. The client timeout doubles as
// the defense against a responder that never answers.
type HTTPResponder struct {
	url    string
	client *http.Client
}

func NewHTTPResponder(url string, timeout time.Duration) *HTTPResponder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPResponder{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *HTTPResponder) Reply(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, fmt.Errorf("responder status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.BotText) == "" {
		return Response{}, errors.New("empty bot response")
	}
	return out, nil
}

package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/concierge/internal/orchestrator"
	"github.com/antoniostano/concierge/internal/protocol"
)

// handleSessionWS serves the live chat socket. The client sends user_message
// payloads; the server answers with transcript events for the user message
// and the bot reply, then a turn_complete marker. Each inbound message runs
// its own turn; two rapid turns may interleave their events, but within a
// turn the user event always precedes the bot event.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	conv, err := s.hub.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	// Replay the transcript so a reconnecting client sees what it missed.
	for _, m := range conv.Transcript() {
		send(protocol.TranscriptEvent{Type: protocol.TypeTranscriptEvent, SessionID: sessionID, Message: m})
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}

		msg, ok := parsed.(protocol.UserMessage)
		if !ok {
			continue
		}
		_ = s.sessions.Touch(sessionID)

		// Each turn runs its own chain so a slow responder does not block
		// the read loop.
		go func(text string) {
			turn, err := conv.SendMessage(ctx, text)
			if err != nil {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "turn_failed",
					Detail:    err.Error(),
				})
				return
			}
			s.sendTurnEvents(send, sessionID, turn)
		}(msg.Text)
	}

	cancel()
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) sendTurnEvents(send func(any), sessionID string, turn orchestrator.Turn) {
	if turn.Skipped {
		send(protocol.TurnComplete{Type: protocol.TypeTurnComplete, SessionID: sessionID, Skipped: true})
		return
	}
	send(protocol.TranscriptEvent{Type: protocol.TypeTranscriptEvent, SessionID: sessionID, Message: turn.UserMessage})
	send(protocol.TranscriptEvent{Type: protocol.TypeTranscriptEvent, SessionID: sessionID, Message: turn.BotMessage})
	send(protocol.TurnComplete{Type: protocol.TypeTurnComplete, SessionID: sessionID, Warning: turn.Warning})
}

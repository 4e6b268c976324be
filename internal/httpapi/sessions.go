package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/concierge/internal/chat"
	"github.com/antoniostano/concierge/internal/session"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sessionOpenedResponse struct {
	session.CreateResponse
	Transcript []chat.Message `json:"transcript"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !chat.ValidUserID(req.UserID) {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid identifier")
		return
	}

	sess := s.sessions.Create(req.UserID, strings.TrimSpace(req.Name))
	conv, err := s.hub.Open(r.Context(), sess)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_open_failed", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, sessionOpenedResponse{
		CreateResponse: session.CreateResponse{
			SessionID:       sess.ID,
			UserID:          sess.UserID,
			Status:          sess.Status,
			StartedAt:       sess.StartedAt,
			LastActivityAt:  sess.LastActivityAt,
			InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
		},
		Transcript: conv.Transcript(),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	conv, err := s.hub.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	_ = s.sessions.Touch(id)

	turn, err := conv.SendMessage(r.Context(), req.Text)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, turn)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.hub.Drop(id)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

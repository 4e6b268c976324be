package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/concierge/internal/auth"
	"github.com/antoniostano/concierge/internal/cache"
	"github.com/antoniostano/concierge/internal/chat"
	"github.com/antoniostano/concierge/internal/history"
)

type appendMessagesRequest struct {
	Messages []chat.Message `json:"messages"`
}

type saveQueryEntryRequest struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

func (s *Server) handleAppendMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req appendMessagesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "messages are required")
		return
	}

	if err := s.store.AppendMessages(r.Context(), userID, req.Messages); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Chat history saved successfully."})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	hist, err := s.store.History(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, hist)
}

func (s *Server) handleSaveQueryEntry(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req saveQueryEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Query == "" || req.Response == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query and response are required")
		return
	}

	// The store handles projection-cache invalidation itself, so this path
	// and the session turn path stay consistent.
	if err := s.store.AppendQueryEntry(r.Context(), userID, req.Query, req.Response); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Conversation saved successfully"})
}

func (s *Server) handleGetQueryLog(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	key := history.QueryLogCacheKey(userID)

	if cached, err := s.cache.Get(r.Context(), key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("query log cache read for %s: %v", userID, err)
	}

	qlog, err := s.store.QueryLog(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	// Join the owner's profile fields into the projection. A missing profile
	// is not fatal; the log is still served.
	if profile, err := s.gateway.Profile(r.Context(), userID); err == nil {
		qlog.Name = profile.Name
		qlog.Email = profile.Email
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		log.Printf("profile lookup for %s: %v", userID, err)
	}

	body, err := json.Marshal(qlog)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	if err := s.cache.Set(r.Context(), key, string(body), s.cfg.QueryLogCacheTTL); err != nil {
		log.Printf("query log cache write for %s: %v", userID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/concierge/internal/auth"
	"github.com/antoniostano/concierge/internal/cache"
	"github.com/antoniostano/concierge/internal/chat"
	"github.com/antoniostano/concierge/internal/config"
	"github.com/antoniostano/concierge/internal/history"
	"github.com/antoniostano/concierge/internal/observability"
	"github.com/antoniostano/concierge/internal/orchestrator"
	"github.com/antoniostano/concierge/internal/session"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	hub      *orchestrator.Hub
	store    history.Store
	gateway  *auth.Gateway
	cache    cache.Cache
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(
	cfg config.Config,
	sessions *session.Manager,
	hub *orchestrator.Hub,
	store history.Store,
	gateway *auth.Gateway,
	queryCache cache.Cache,
	metrics *observability.Metrics,
) *Server {
	if queryCache == nil {
		queryCache = cache.NoopCache{}
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		hub:      hub,
		store:    store,
		gateway:  gateway,
		cache:    queryCache,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up; other sites must not
				// be able to drive a user's chat session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/users/signup", s.handleSignUp)
		api.Post("/users/login", s.handleLogIn)

		api.Post("/chat/{userID}/messages", s.handleAppendMessages)
		api.Get("/chat/{userID}/history", s.handleGetHistory)

		api.Post("/conversations/{userID}", s.handleSaveQueryEntry)
		api.Get("/conversations/{userID}", s.handleGetQueryLog)

		api.Post("/sessions", s.handleCreateSession)
		api.Post("/sessions/{id}/messages", s.handleSendMessage)
		api.Post("/sessions/{id}/end", s.handleEndSession)
		api.Get("/sessions/ws", s.handleSessionWS)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondStoreError maps the store's error taxonomy onto HTTP statuses:
// malformed ids and payloads are client errors, absence is 404, anything
// else is a storage failure.
func respondStoreError(w http.ResponseWriter, err error) {
	var vErr *chat.ValidationError
	switch {
	case errors.Is(err, history.ErrInvalidID):
		respondError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, "invalid_message", err.Error())
	case errors.Is(err, history.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
	}
}

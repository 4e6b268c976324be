package httpapi

import (
	"errors"
	"net/http"

	"github.com/antoniostano/concierge/internal/auth"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := s.gateway.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "email_taken", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "signup_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    userPayload{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (s *Server) handleLogIn(w http.ResponseWriter, r *http.Request) {
	var req logInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := s.gateway.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    userPayload{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"mossboard/internal/engine/actors"
	"mossboard/internal/models"
	"mossboard/internal/utils"

	"github.com/google/uuid"
)

// RegisterUserRequest represents a request to register a new user
type RegisterUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a request to log in a user
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a response to a login request
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// HandleUserRegistration handles requests to register a new user
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		var req RegisterUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.RegisterUserMsg{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		s.respond(w, result, err)
	}
}

// HandleUserLogin handles requests to log in a user
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.LoginMsg{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			s.respond(w, nil, err)
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			// Credential failures come back as a structured login response
			// rather than a bare error, matching what clients expect.
			if appErr.Code == utils.ErrInvalidCredentials {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(&LoginResponse{
					Success: false,
					Error:   "Invalid credentials",
				})
				return
			}
			s.Metrics.IncrementErrors()
			s.writeError(w, appErr)
			return
		}

		user, ok := result.(*models.User)
		if !ok {
			s.Log.Error().Str("type", "login").Msg("unexpected actor response type")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		token, err := s.Auth.GenerateToken(user.ID)
		if err != nil {
			s.Log.Error().Err(err).Msg("failed to sign token")
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&LoginResponse{
			Success: true,
			Token:   token,
			UserID:  user.ID.String(),
		})
	}
}

// HandleGetUser returns a user's public profile
func (s *Server) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		userID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.GetUserMsg{UserID: userID})
		s.respond(w, result, err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"mossboard/internal/engine/actors"

	"github.com/google/uuid"
)

// CreatePostRequest represents a request to create a new post
type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := s.Metrics.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"metrics":     snapshot,
			"server_time": time.Now(),
		})
	}
}

// HandlePost handles post creation
func (s *Server) HandlePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		authorID, ok := requesterID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.CreatePostMsg{
			Title:    req.Title,
			Body:     req.Body,
			AuthorID: authorID,
		})
		s.respond(w, result, err)
	}
}

// HandlePostGet returns a post with its denormalized counters
func (s *Server) HandlePostGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		postID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "Invalid post ID", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: postID})
		s.respond(w, result, err)
	}
}

// HandleArchivePost freezes a post so no further comments or votes land.
func (s *Server) HandleArchivePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		requester, ok := requesterID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req struct {
			PostID string `json:"postId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		postID, err := uuid.Parse(req.PostID)
		if err != nil {
			http.Error(w, "Invalid post ID", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.ArchivePostMsg{
			PostID:      postID,
			RequesterID: requester,
		})
		s.respond(w, result, err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"mossboard/internal/engine/actors"
	"mossboard/internal/models"

	"github.com/google/uuid"
)

// VoteRequest represents a request to vote on a post or comment
type VoteRequest struct {
	TargetID string `json:"targetId"`
	Action   string `json:"action"` // "up", "down" or "cancel"
}

// HandlePostVote handles voting on posts
func (s *Server) HandlePostVote() http.HandlerFunc {
	return s.handleVote(models.PostTarget)
}

// HandleCommentVote handles voting on comments
func (s *Server) HandleCommentVote() http.HandlerFunc {
	return s.handleVote(models.CommentTarget)
}

func (s *Server) handleVote(kind models.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		voterID, ok := requesterID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req VoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			http.Error(w, "Invalid target ID", http.StatusBadRequest)
			return
		}

		var action models.VoteAction
		switch req.Action {
		case string(models.ActionUpvote):
			action = models.ActionUpvote
		case string(models.ActionDown):
			action = models.ActionDown
		case string(models.ActionCancel):
			action = models.ActionCancel
		default:
			http.Error(w, "Invalid vote action", http.StatusBadRequest)
			return
		}

		result, err := s.ask(s.Engine.GetVoteActor(), &actors.CastVoteMsg{
			Target:  models.TargetRef{Kind: kind, ID: targetID},
			VoterID: voterID,
			Action:  action,
		})
		s.respond(w, result, err)
	}
}

// HandleMyVotes returns the caller's current vote on each requested target.
// Query: kind=post|comment, ids=comma-separated UUIDs.
func (s *Server) HandleMyVotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		voterID, ok := requesterID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var kind models.TargetKind
		switch r.URL.Query().Get("kind") {
		case string(models.PostTarget):
			kind = models.PostTarget
		case string(models.CommentTarget):
			kind = models.CommentTarget
		default:
			http.Error(w, "Invalid target kind", http.StatusBadRequest)
			return
		}

		rawIDs := r.URL.Query().Get("ids")
		if rawIDs == "" {
			http.Error(w, "Missing target IDs", http.StatusBadRequest)
			return
		}

		var targetIDs []uuid.UUID
		for _, raw := range strings.Split(rawIDs, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				http.Error(w, "Invalid target ID", http.StatusBadRequest)
				return
			}
			targetIDs = append(targetIDs, id)
		}

		result, err := s.ask(s.Engine.GetVoteActor(), &actors.GetVoterStateMsg{
			Kind:      kind,
			TargetIDs: targetIDs,
			VoterID:   voterID,
		})
		s.respond(w, result, err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mossboard/internal/engine/actors"

	"github.com/google/uuid"
)

// CreateCommentRequest represents a request to create a new comment
type CreateCommentRequest struct {
	Body     string `json:"body"`
	PostID   string `json:"postId"`
	ParentID string `json:"parentId,omitempty"` // Optional, for replies
}

// EditCommentRequest represents a request to edit an existing comment
type EditCommentRequest struct {
	CommentID string `json:"commentId"`
	Body      string `json:"body"`
}

// HandleComment handles comment-related operations
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		authorID, ok := requesterID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req CreateCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			postID, err := uuid.Parse(req.PostID)
			if err != nil {
				http.Error(w, "Invalid post ID", http.StatusBadRequest)
				return
			}

			var parentID *uuid.UUID
			if req.ParentID != "" {
				parsed, err := uuid.Parse(req.ParentID)
				if err != nil {
					http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
					return
				}
				parentID = &parsed
			}

			result, err := s.ask(s.Engine.GetCommentActor(), &actors.CreateCommentMsg{
				Body:     req.Body,
				AuthorID: authorID,
				PostID:   postID,
				ParentID: parentID,
			})
			s.respond(w, result, err)

		case http.MethodPut:
			var req EditCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			commentID, err := uuid.Parse(req.CommentID)
			if err != nil {
				http.Error(w, "Invalid comment ID", http.StatusBadRequest)
				return
			}

			result, err := s.ask(s.Engine.GetCommentActor(), &actors.EditCommentMsg{
				CommentID:   commentID,
				RequesterID: authorID,
				Body:        req.Body,
			})
			s.respond(w, result, err)

		case http.MethodDelete:
			commentID, err := uuid.Parse(r.URL.Query().Get("commentId"))
			if err != nil {
				http.Error(w, "Invalid comment ID", http.StatusBadRequest)
				return
			}

			result, err := s.ask(s.Engine.GetCommentActor(), &actors.DeleteCommentMsg{
				CommentID:   commentID,
				RequesterID: authorID,
			})
			s.respond(w, result, err)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleCommentTree returns one page of a post's threaded comments.
// Query: postId (required), parentId, sort, page, size.
func (s *Server) HandleCommentTree() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		postID, err := uuid.Parse(r.URL.Query().Get("postId"))
		if err != nil {
			http.Error(w, "Invalid post ID", http.StatusBadRequest)
			return
		}

		var parentID *uuid.UUID
		if raw := r.URL.Query().Get("parentId"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
				return
			}
			parentID = &parsed
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		result, err := s.ask(s.Engine.GetCommentActor(), &actors.GetCommentTreeMsg{
			PostID:   postID,
			ParentID: parentID,
			ViewerID: viewerID(r),
			Sort:     r.URL.Query().Get("sort"),
			Page:     page,
			Size:     size,
		})
		s.respond(w, result, err)
	}
}

package comments

import (
	"context"
	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/moderation"
	"mossboard/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxUpdateAttempts = 3

// Service owns the comment aggregate lifecycle: creation, edit, and the
// terminal soft delete. Vote counters on comments move only through the
// vote service's unit of work, never through here.
type Service struct {
	store   database.Adapter
	guard   moderation.MemberGuard
	metrics *utils.MetricsCollector
	log     zerolog.Logger
}

func NewService(store database.Adapter, guard moderation.MemberGuard, metrics *utils.MetricsCollector, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		guard:   guard,
		metrics: metrics,
		log:     log.With().Str("component", "comments").Logger(),
	}
}

// CreateRoot adds a depth-0 comment under a post.
func (s *Service) CreateRoot(ctx context.Context, postID, authorID uuid.UUID, body string) (*models.Comment, error) {
	if authorID == uuid.Nil {
		return nil, utils.NewValidationError("author identity is required")
	}
	if err := s.guard.CheckMember(ctx, authorID); err != nil {
		return nil, err
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Archived {
		return nil, utils.NewStateConflictError("post is archived and cannot be commented on")
	}

	comment, err := models.NewRootComment(postID, authorID, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("comment", comment.ID.String()).
		Str("post", postID.String()).
		Msg("root comment created")
	return comment, nil
}

// Reply adds a child under an existing comment. Depth is derived from the
// stored parent; callers never supply it.
func (s *Service) Reply(ctx context.Context, parentID, authorID uuid.UUID, body string) (*models.Comment, error) {
	if authorID == uuid.Nil {
		return nil, utils.NewValidationError("author identity is required")
	}
	if err := s.guard.CheckMember(ctx, authorID); err != nil {
		return nil, err
	}

	parent, err := s.store.GetComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	post, err := s.store.GetPost(ctx, parent.PostID)
	if err != nil {
		return nil, err
	}
	if post.Archived {
		return nil, utils.NewStateConflictError("post is archived and cannot be commented on")
	}

	comment, err := models.NewReply(parent, authorID, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("comment", comment.ID.String()).
		Str("parent", parentID.String()).
		Int("depth", comment.Depth).
		Msg("reply created")
	return comment, nil
}

// Edit replaces the body of the requester's own comment.
func (s *Service) Edit(ctx context.Context, commentID, requesterID uuid.UUID, newBody string) (*models.Comment, error) {
	if err := s.guard.CheckMember(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.updateWithRetry(ctx, commentID, func(comment *models.Comment) error {
		if comment.AuthorID != requesterID {
			return utils.NewForbiddenError("only the author may edit a comment")
		}
		return comment.Edit(newBody)
	})
}

// SoftDelete marks the requester's own comment deleted. The record and its
// position in the tree are retained for child visibility; deleting again is
// a state conflict.
func (s *Service) SoftDelete(ctx context.Context, commentID, requesterID uuid.UUID) (*models.Comment, error) {
	if err := s.guard.CheckMember(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.updateWithRetry(ctx, commentID, func(comment *models.Comment) error {
		if comment.AuthorID != requesterID {
			return utils.NewForbiddenError("only the author may delete a comment")
		}
		return comment.SoftDelete()
	})
}

// updateWithRetry re-reads the comment and re-evaluates the mutation on
// every attempt, so a version conflict (for example a concurrent vote
// bumping the token) never carries a stale decision through.
func (s *Service) updateWithRetry(ctx context.Context, commentID uuid.UUID, mutate func(*models.Comment) error) (*models.Comment, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		comment, err := s.store.GetComment(ctx, commentID)
		if err != nil {
			return nil, err
		}
		if err := mutate(comment); err != nil {
			return nil, err
		}
		err = s.store.UpdateComment(ctx, comment)
		if err == nil {
			return comment, nil
		}
		if !utils.IsErrorCode(err, utils.ErrVersionConflict) {
			return nil, err
		}
		s.metrics.IncrementConflicts()
		lastErr = err
	}
	return nil, utils.NewAppError(utils.ErrRetriesExhausted,
		"comment update on "+commentID.String()+" kept conflicting", lastErr)
}

package posts

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

// Service owns the post lifecycle. Posts exist here mainly as votable
// targets; vote counters move only through the vote service.
type Service struct {
	store database.Adapter
	guard moderation.MemberGuard
	log   zerolog.Logger
}

func NewService(store database.Adapter, guard moderation.MemberGuard, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		guard: guard,
		log:   log.With().Str("component", "posts").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, title, body string, authorID uuid.UUID) (*models.Post, error) {
	if err := s.guard.CheckMember(ctx, authorID); err != nil {
		return nil, err
	}
	post, err := models.NewPost(title, body, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.log.Info().Str("post", post.ID.String()).Msg("post created")
	return post, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.store.GetPost(ctx, id)
}

// Archive freezes a post; archived posts accept no votes or comments.
func (s *Service) Archive(ctx context.Context, postID, requesterID uuid.UUID) (*models.Post, error) {
	if err := s.guard.CheckMember(ctx, requesterID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		post, err := s.store.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		if post.AuthorID != requesterID {
			return nil, utils.NewForbiddenError("only the author may archive a post")
		}
		if err := post.Archive(); err != nil {
			return nil, err
		}
		err = s.store.UpdatePost(ctx, post)
		if err == nil {
			return post, nil
		}
		if !utils.IsErrorCode(err, utils.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, utils.NewAppError(utils.ErrRetriesExhausted,
		"post archive on "+postID.String()+" kept conflicting", lastErr)
}

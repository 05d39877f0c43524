// internal/database/adapter.go
package database

import (
	"context"
	"mossboard/internal/models"

	"github.com/google/uuid"
)

// VoteReader is the read side of the vote record store. Reads outside a
// transaction are for display only; write decisions re-read inside VoteTx.
type VoteReader interface {
	// FindVote returns the voter's current vote on the target, or nil when
	// the voter has not voted.
	FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error)
	// FindVotesForVoter resolves one voter's votes across many targets of one
	// kind in a single query, keyed by target ID. Absent targets are omitted.
	FindVotesForVoter(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error)
	// CountVotes recounts the vote records referencing a target. Used by
	// consistency checks, never by the hot read path.
	CountVotes(ctx context.Context, ref models.TargetRef) (up int, down int, err error)
}

// VoteTx is the transactional unit of work for a single vote operation: the
// vote record write and the aggregate counter write commit or fail together.
type VoteTx interface {
	FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error)
	// PutVote upserts the (target, voter) record. An insert that races a
	// concurrent insert surfaces ErrDuplicateVote.
	PutVote(ctx context.Context, vote *models.Vote) error
	RemoveVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) error
	LoadVotable(ctx context.Context, ref models.TargetRef) (models.Votable, error)
	// SaveVotable persists the aggregate's counters conditionally on its
	// version token matching the stored one, then increments the token.
	// A mismatch surfaces ErrVersionConflict.
	SaveVotable(ctx context.Context, votable models.Votable) error
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// UpdatePost saves mutable post fields with an optimistic version check.
	UpdatePost(ctx context.Context, post *models.Post) error
}

// CommentStore persists comments and serves the tree read path.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	// UpdateComment saves body/status changes with an optimistic version check.
	UpdateComment(ctx context.Context, comment *models.Comment) error
	// GetRootComments returns a page of a post's depth-0 comments ordered by
	// creation time ascending.
	GetRootComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, error)
	// GetReplies returns a page of a comment's direct children ordered by
	// creation time ascending. Deleted comments are included; display policy
	// is the tree builder's concern.
	GetReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*models.Comment, error)
}

// UserStore persists member accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsers resolves many users at once, keyed by ID. Missing users are
	// omitted from the result.
	GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error
}

// Adapter is the common interface for storage backends.
type Adapter interface {
	VoteReader
	PostStore
	CommentStore
	UserStore

	// InVoteTx runs fn inside the vote unit of work. Partial application
	// across the vote-record write and the counter write is disallowed.
	InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error

	Close(ctx context.Context) error
}

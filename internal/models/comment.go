package models

import (
	"mossboard/internal/utils"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// CommentStatus is a tagged state. Deleted is terminal: the record stays in
// the tree for child visibility and is never resurrected.
type CommentStatus string

const (
	CommentVisible CommentStatus = "visible"
	CommentDeleted CommentStatus = "deleted"
)

// Body limits come from the request contract: creation is tighter than edit.
const (
	MaxCommentBodyCreate = 10000
	MaxCommentBodyEdit   = 20000
)

// Comment is a node in a reply tree and a votable target.
// Depth is fixed at creation: 0 for roots, parent.Depth+1 for replies.
type Comment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	PostID    uuid.UUID     `json:"postId" db:"post_id"`
	AuthorID  uuid.UUID     `json:"authorId" db:"author_id"`
	ParentID  *uuid.UUID    `json:"parentId,omitempty" db:"parent_id"`
	Depth     int           `json:"depth" db:"depth"`
	Body      string        `json:"body" db:"body"`
	Status    CommentStatus `json:"status" db:"status"`
	Upvotes   int           `json:"upvotes" db:"upvotes"`
	Downvotes int           `json:"downvotes" db:"downvotes"`
	Version   int64         `json:"version" db:"version"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// ValidateCommentBody checks the body value object independent of
// persistence: non-blank and within the given rune limit.
func ValidateCommentBody(body string, limit int) error {
	if strings.TrimSpace(body) == "" {
		return utils.NewValidationError("comment body must not be blank")
	}
	if utf8.RuneCountInString(body) > limit {
		return utils.NewValidationError("comment body exceeds maximum length")
	}
	return nil
}

// NewRootComment creates a depth-0 comment under a post.
func NewRootComment(postID, authorID uuid.UUID, body string) (*Comment, error) {
	return newComment(postID, authorID, nil, 0, body)
}

// NewReply creates a child of parent. Depth is derived from the stored
// parent, never from caller-supplied input.
func NewReply(parent *Comment, authorID uuid.UUID, body string) (*Comment, error) {
	if parent == nil {
		return nil, utils.NewValidationError("parent comment is required for a reply")
	}
	if parent.Status == CommentDeleted {
		return nil, utils.NewStateConflictError("cannot reply to a deleted comment")
	}
	parentID := parent.ID
	return newComment(parent.PostID, authorID, &parentID, parent.Depth+1, body)
}

func newComment(postID, authorID uuid.UUID, parentID *uuid.UUID, depth int, body string) (*Comment, error) {
	if postID == uuid.Nil {
		return nil, utils.NewValidationError("post id is required")
	}
	if authorID == uuid.Nil {
		return nil, utils.NewValidationError("author id is required")
	}
	if depth < 0 {
		return nil, utils.NewValidationError("comment depth must not be negative")
	}
	// depth == 0 iff parentID == nil, by construction
	if (depth == 0) != (parentID == nil) {
		return nil, utils.NewValidationError("root comments have no parent and depth zero")
	}
	if err := ValidateCommentBody(body, MaxCommentBodyCreate); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Comment{
		ID:        uuid.New(),
		PostID:    postID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Depth:     depth,
		Body:      body,
		Status:    CommentVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Edit replaces the body. Deleted comments cannot be edited.
func (c *Comment) Edit(newBody string) error {
	if c.Status == CommentDeleted {
		return utils.NewStateConflictError("cannot edit a deleted comment")
	}
	if err := ValidateCommentBody(newBody, MaxCommentBodyEdit); err != nil {
		return err
	}
	c.Body = newBody
	c.UpdatedAt = time.Now()
	return nil
}

// SoftDelete marks the comment deleted. The transition is terminal; deleting
// again is a state conflict, not a no-op.
func (c *Comment) SoftDelete() error {
	if c.Status == CommentDeleted {
		return utils.NewStateConflictError("comment is already deleted")
	}
	c.Status = CommentDeleted
	c.UpdatedAt = time.Now()
	return nil
}

func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Edited reports whether the comment was changed after creation.
func (c *Comment) Edited() bool {
	return !c.UpdatedAt.Equal(c.CreatedAt)
}

func (c *Comment) Ref() TargetRef {
	return CommentRef(c.ID)
}

func (c *Comment) VoteCounts() (int, int) {
	return c.Upvotes, c.Downvotes
}

func (c *Comment) Score() int {
	return c.Upvotes - c.Downvotes
}

func (c *Comment) ApplyVoteDelta(oldValue, newValue int) {
	applyVoteDelta(&c.Upvotes, &c.Downvotes, oldValue, newValue)
}

func (c *Comment) CheckVotable() error {
	if c.Status == CommentDeleted {
		return utils.NewStateConflictError("comment is deleted and cannot be voted on")
	}
	return nil
}

func (c *Comment) VersionToken() int64 { return c.Version }
func (c *Comment) BumpVersion()        { c.Version++ }

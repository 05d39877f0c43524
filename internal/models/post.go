package models

import (
	"mossboard/internal/utils"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxPostTitleLength = 300

// Post is a top-level submission and a votable target.
type Post struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	AuthorID  uuid.UUID `json:"authorId" db:"author_id"`
	Archived  bool      `json:"archived" db:"archived"`
	Upvotes   int       `json:"upvotes" db:"upvotes"`
	Downvotes int       `json:"downvotes" db:"downvotes"`
	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewPost validates input and constructs a live post.
func NewPost(title, body string, authorID uuid.UUID) (*Post, error) {
	if authorID == uuid.Nil {
		return nil, utils.NewValidationError("author id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, utils.NewValidationError("post title must not be blank")
	}
	if len(title) > maxPostTitleLength {
		return nil, utils.NewValidationError("post title exceeds maximum length")
	}
	now := time.Now()
	return &Post{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Post) Ref() TargetRef {
	return PostRef(p.ID)
}

func (p *Post) VoteCounts() (int, int) {
	return p.Upvotes, p.Downvotes
}

func (p *Post) Score() int {
	return p.Upvotes - p.Downvotes
}

// Vote deltas do not touch UpdatedAt; edits do.
func (p *Post) ApplyVoteDelta(oldValue, newValue int) {
	applyVoteDelta(&p.Upvotes, &p.Downvotes, oldValue, newValue)
}

func (p *Post) CheckVotable() error {
	if p.Archived {
		return utils.NewStateConflictError("post is archived and cannot be voted on")
	}
	return nil
}

// Archive freezes the post. Archiving twice is a state conflict.
func (p *Post) Archive() error {
	if p.Archived {
		return utils.NewStateConflictError("post is already archived")
	}
	p.Archived = true
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Post) VersionToken() int64 { return p.Version }
func (p *Post) BumpVersion()        { p.Version++ }

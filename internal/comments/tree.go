package comments

import (
	"context"
	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	SortNew = "new" // creation time ascending, the only mandated ordering

	defaultPageSize = 20
	maxPageSize     = 100
	maxPageOffset   = 1 << 30 // keeps page*size far from int overflow

	redactedBody      = "[deleted]"
	unknownAuthorName = "[unknown]"
)

// AuthorDirectory supplies display names for comment authors.
type AuthorDirectory interface {
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// VoteStateReader is the vote service's batched read side.
type VoteStateReader interface {
	VoterState(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error)
}

// CommentView is the presentation record for one node of the tree.
type CommentView struct {
	CommentID         uuid.UUID      `json:"commentId"`
	PostID            uuid.UUID      `json:"postId"`
	ParentCommentID   *uuid.UUID     `json:"parentCommentId,omitempty"`
	Depth             int            `json:"depth"`
	AuthorID          uuid.UUID      `json:"authorId"`
	AuthorDisplayName string         `json:"authorDisplayName"`
	Mine              bool           `json:"mine"`
	Deleted           bool           `json:"deleted"`
	Edited            bool           `json:"edited"`
	Body              string         `json:"body"`
	Upvotes           int            `json:"upvotes"`
	Downvotes         int            `json:"downvotes"`
	Score             int            `json:"score"`
	MyVote            *int           `json:"myVote,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	Children          []*CommentView `json:"children"`
}

// TreeQuery selects one page of a post's comment tree.
type TreeQuery struct {
	PostID   uuid.UUID
	ParentID *uuid.UUID // nil: page of roots; set: page of that comment's replies
	ViewerID uuid.UUID  // uuid.Nil for anonymous viewers
	Sort     string
	Page     int
	Size     int
}

// TreeBuilder assembles the nested comment view. It is a pure read
// composition: it never mutates comment or vote state.
type TreeBuilder struct {
	store   database.Adapter
	votes   VoteStateReader
	authors AuthorDirectory
	log     zerolog.Logger
}

func NewTreeBuilder(store database.Adapter, votes VoteStateReader, authors AuthorDirectory, log zerolog.Logger) *TreeBuilder {
	return &TreeBuilder{
		store:   store,
		votes:   votes,
		authors: authors,
		log:     log.With().Str("component", "comment-tree").Logger(),
	}
}

// Build fetches one page of roots (or one parent's direct replies) plus one
// level of children, and resolves author names and the viewer's votes in
// batched lookups.
func (b *TreeBuilder) Build(ctx context.Context, q TreeQuery) ([]*CommentView, error) {
	if q.Sort == "" {
		q.Sort = SortNew
	}
	if q.Sort != SortNew {
		return nil, utils.NewValidationError("unsupported sort key: " + q.Sort)
	}
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	if q.Page > maxPageOffset/q.Size {
		return nil, utils.NewValidationError("page number out of range")
	}
	offset := q.Page * q.Size

	var parents []*models.Comment
	children := make(map[uuid.UUID][]*models.Comment)

	if q.ParentID == nil {
		// Existence check keeps "no comments" distinct from "no such post".
		if _, err := b.store.GetPost(ctx, q.PostID); err != nil {
			return nil, err
		}
		roots, err := b.store.GetRootComments(ctx, q.PostID, q.Size, offset)
		if err != nil {
			return nil, err
		}
		parents = roots
		for _, root := range roots {
			replies, err := b.store.GetReplies(ctx, root.ID, q.Size, 0)
			if err != nil {
				return nil, err
			}
			children[root.ID] = replies
		}
	} else {
		parent, err := b.store.GetComment(ctx, *q.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != q.PostID {
			return nil, utils.NewValidationError("comment does not belong to the given post")
		}
		replies, err := b.store.GetReplies(ctx, parent.ID, q.Size, offset)
		if err != nil {
			return nil, err
		}
		parents = replies
	}

	all := make([]*models.Comment, 0, len(parents))
	all = append(all, parents...)
	for _, replies := range children {
		all = append(all, replies...)
	}

	names, myVotes, err := b.resolveContext(ctx, all, q.ViewerID)
	if err != nil {
		return nil, err
	}

	views := make([]*CommentView, 0, len(parents))
	for _, parent := range parents {
		view := b.toView(parent, q.ViewerID, names, myVotes)
		for _, reply := range children[parent.ID] {
			view.Children = append(view.Children, b.toView(reply, q.ViewerID, names, myVotes))
		}
		views = append(views, view)
	}
	return views, nil
}

func (b *TreeBuilder) resolveContext(ctx context.Context, comments []*models.Comment, viewerID uuid.UUID) (map[uuid.UUID]string, map[uuid.UUID]int, error) {
	authorIDs := make([]uuid.UUID, 0, len(comments))
	commentIDs := make([]uuid.UUID, 0, len(comments))
	seenAuthors := make(map[uuid.UUID]bool)
	for _, comment := range comments {
		commentIDs = append(commentIDs, comment.ID)
		if !seenAuthors[comment.AuthorID] {
			seenAuthors[comment.AuthorID] = true
			authorIDs = append(authorIDs, comment.AuthorID)
		}
	}

	names, err := b.authors.DisplayNames(ctx, authorIDs)
	if err != nil {
		return nil, nil, err
	}

	// One batched lookup for the viewer's votes, not one query per comment.
	myVotes, err := b.votes.VoterState(ctx, models.CommentTarget, commentIDs, viewerID)
	if err != nil {
		return nil, nil, err
	}
	return names, myVotes, nil
}

func (b *TreeBuilder) toView(comment *models.Comment, viewerID uuid.UUID, names map[uuid.UUID]string, myVotes map[uuid.UUID]int) *CommentView {
	deleted := comment.Status == models.CommentDeleted

	body := comment.Body
	if deleted {
		body = redactedBody
	}

	name, ok := names[comment.AuthorID]
	if !ok {
		name = unknownAuthorName
	}

	view := &CommentView{
		CommentID:         comment.ID,
		PostID:            comment.PostID,
		ParentCommentID:   comment.ParentID,
		Depth:             comment.Depth,
		AuthorID:          comment.AuthorID,
		AuthorDisplayName: name,
		Mine:              viewerID != uuid.Nil && comment.AuthorID == viewerID,
		Deleted:           deleted,
		Edited:            comment.Edited(),
		Body:              body,
		Upvotes:           comment.Upvotes,
		Downvotes:         comment.Downvotes,
		Score:             comment.Score(),
		CreatedAt:         comment.CreatedAt,
		UpdatedAt:         comment.UpdatedAt,
		Children:          []*CommentView{},
	}
	if value, voted := myVotes[comment.ID]; voted {
		view.MyVote = &value
	}
	return view
}

package actors

import (
	stdctx "context"
	"mossboard/internal/comments"
	"mossboard/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message types for CommentActor
type (
	CreateCommentMsg struct {
		Body     string     `json:"body"`
		AuthorID uuid.UUID  `json:"authorId"`
		PostID   uuid.UUID  `json:"postId"`
		ParentID *uuid.UUID `json:"parentId,omitempty"`
	}

	EditCommentMsg struct {
		CommentID   uuid.UUID `json:"commentId"`
		RequesterID uuid.UUID `json:"requesterId"`
		Body        string    `json:"body"`
	}

	DeleteCommentMsg struct {
		CommentID   uuid.UUID `json:"commentId"`
		RequesterID uuid.UUID `json:"requesterId"`
	}

	GetCommentTreeMsg struct {
		PostID   uuid.UUID  `json:"postId"`
		ParentID *uuid.UUID `json:"parentId,omitempty"`
		ViewerID uuid.UUID  `json:"viewerId,omitempty"`
		Sort     string     `json:"sort,omitempty"`
		Page     int        `json:"page,omitempty"`
		Size     int        `json:"size,omitempty"`
	}
)

// CommentActor manages comment writes and tree reads.
type CommentActor struct {
	comments *comments.Service
	tree     *comments.TreeBuilder
	log      zerolog.Logger
}

func NewCommentActor(svc *comments.Service, tree *comments.TreeBuilder, log zerolog.Logger) actor.Actor {
	return &CommentActor{
		comments: svc,
		tree:     tree,
		log:      log.With().Str("actor", "comment").Logger(),
	}
}

func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log.Debug().Str("pid", context.Self().String()).Msg("comment actor started")

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *EditCommentMsg:
		a.handleEditComment(context, msg)

	case *DeleteCommentMsg:
		a.handleDeleteComment(context, msg)

	case *GetCommentTreeMsg:
		a.handleGetTree(context, msg)
	}
}

func (a *CommentActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	ctx := stdctx.Background()

	var (
		comment *models.Comment
		err     error
	)
	if msg.ParentID == nil {
		comment, err = a.comments.CreateRoot(ctx, msg.PostID, msg.AuthorID, msg.Body)
	} else {
		comment, err = a.comments.Reply(ctx, *msg.ParentID, msg.AuthorID, msg.Body)
	}
	if err != nil {
		context.Respond(asAppError(err, "failed to create comment"))
		return
	}
	context.Respond(comment)
}

func (a *CommentActor) handleEditComment(context actor.Context, msg *EditCommentMsg) {
	comment, err := a.comments.Edit(stdctx.Background(), msg.CommentID, msg.RequesterID, msg.Body)
	if err != nil {
		context.Respond(asAppError(err, "failed to edit comment"))
		return
	}
	context.Respond(comment)
}

func (a *CommentActor) handleDeleteComment(context actor.Context, msg *DeleteCommentMsg) {
	comment, err := a.comments.SoftDelete(stdctx.Background(), msg.CommentID, msg.RequesterID)
	if err != nil {
		context.Respond(asAppError(err, "failed to delete comment"))
		return
	}
	context.Respond(comment)
}

func (a *CommentActor) handleGetTree(context actor.Context, msg *GetCommentTreeMsg) {
	views, err := a.tree.Build(stdctx.Background(), comments.TreeQuery{
		PostID:   msg.PostID,
		ParentID: msg.ParentID,
		ViewerID: msg.ViewerID,
		Sort:     msg.Sort,
		Page:     msg.Page,
		Size:     msg.Size,
	})
	if err != nil {
		context.Respond(asAppError(err, "failed to build comment tree"))
		return
	}
	context.Respond(views)
}

package actors

import (
	stdctx "context"
	"mossboard/internal/posts"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message types for PostActor
type (
	CreatePostMsg struct {
		Title    string    `json:"title"`
		Body     string    `json:"body"`
		AuthorID uuid.UUID `json:"authorId"`
	}

	GetPostMsg struct {
		PostID uuid.UUID `json:"postId"`
	}

	ArchivePostMsg struct {
		PostID      uuid.UUID `json:"postId"`
		RequesterID uuid.UUID `json:"requesterId"`
	}
)

// PostActor manages post lifecycle operations.
type PostActor struct {
	posts *posts.Service
	log   zerolog.Logger
}

func NewPostActor(svc *posts.Service, log zerolog.Logger) actor.Actor {
	return &PostActor{
		posts: svc,
		log:   log.With().Str("actor", "post").Logger(),
	}
}

func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log.Debug().Str("pid", context.Self().String()).Msg("post actor started")

	case *CreatePostMsg:
		post, err := a.posts.Create(stdctx.Background(), msg.Title, msg.Body, msg.AuthorID)
		if err != nil {
			context.Respond(asAppError(err, "failed to create post"))
			return
		}
		context.Respond(post)

	case *GetPostMsg:
		post, err := a.posts.Get(stdctx.Background(), msg.PostID)
		if err != nil {
			context.Respond(asAppError(err, "failed to fetch post"))
			return
		}
		context.Respond(post)

	case *ArchivePostMsg:
		post, err := a.posts.Archive(stdctx.Background(), msg.PostID, msg.RequesterID)
		if err != nil {
			context.Respond(asAppError(err, "failed to archive post"))
			return
		}
		context.Respond(post)
	}
}

package engine

import (
	"mossboard/internal/comments"
	"mossboard/internal/database"
	"mossboard/internal/engine/actors"
	"mossboard/internal/moderation"
	"mossboard/internal/posts"
	"mossboard/internal/users"
	"mossboard/internal/utils"
	"mossboard/internal/voting"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog"
)

// Engine wires the domain services into actors and hands out their PIDs.
// Each actor serializes its own message traffic; the services behind them
// stay safe for concurrent use so actors never have to share state.
type Engine struct {
	voteActor    *actor.PID
	commentActor *actor.PID
	postActor    *actor.PID
	userActor    *actor.PID
}

func NewEngine(system *actor.ActorSystem, store database.Adapter, metrics *utils.MetricsCollector, log zerolog.Logger) *Engine {
	context := system.Root

	guard := moderation.NewBanGuard(store)

	voteSvc := voting.NewService(store, guard, metrics, log)
	commentSvc := comments.NewService(store, guard, metrics, log)
	postSvc := posts.NewService(store, guard, log)
	userSvc := users.NewService(store, log)
	tree := comments.NewTreeBuilder(store, voteSvc, comments.NewUserDirectory(store), log)

	voteProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewVoteActor(voteSvc, log)
	})
	votePID := context.Spawn(voteProps)

	commentProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(commentSvc, tree, log)
	})
	commentPID := context.Spawn(commentProps)

	postProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(postSvc, log)
	})
	postPID := context.Spawn(postProps)

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserActor(userSvc, log)
	})
	userPID := context.Spawn(userProps)

	return &Engine{
		voteActor:    votePID,
		commentActor: commentPID,
		postActor:    postPID,
		userActor:    userPID,
	}
}

// GetVoteActor returns the PID of the vote actor
func (e *Engine) GetVoteActor() *actor.PID {
	return e.voteActor
}

// GetCommentActor returns the PID of the comment actor
func (e *Engine) GetCommentActor() *actor.PID {
	return e.commentActor
}

// GetPostActor returns the PID of the post actor
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// GetUserActor returns the PID of the user actor
func (e *Engine) GetUserActor() *actor.PID {
	return e.userActor
}

package actors

import (
	stdctx "context"
	"errors"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"mossboard/internal/voting"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message types for VoteActor
type (
	CastVoteMsg struct {
		Target  models.TargetRef  `json:"target"`
		VoterID uuid.UUID         `json:"voterId"`
		Action  models.VoteAction `json:"action"`
	}

	GetVoterStateMsg struct {
		Kind      models.TargetKind `json:"kind"`
		TargetIDs []uuid.UUID       `json:"targetIds"`
		VoterID   uuid.UUID         `json:"voterId"`
	}

	GetMyVoteMsg struct {
		Target  models.TargetRef `json:"target"`
		VoterID uuid.UUID        `json:"voterId"`
	}
)

// VoterStateResponse carries the voter's current value per target.
type VoterStateResponse struct {
	Votes map[uuid.UUID]int `json:"votes"`
}

// VoteActor serializes vote traffic through the voting service.
type VoteActor struct {
	votes *voting.Service
	log   zerolog.Logger
}

func NewVoteActor(votes *voting.Service, log zerolog.Logger) actor.Actor {
	return &VoteActor{
		votes: votes,
		log:   log.With().Str("actor", "vote").Logger(),
	}
}

func (a *VoteActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log.Debug().Str("pid", context.Self().String()).Msg("vote actor started")

	case *CastVoteMsg:
		a.handleCastVote(context, msg)

	case *GetVoterStateMsg:
		a.handleVoterState(context, msg)

	case *GetMyVoteMsg:
		a.handleMyVote(context, msg)
	}
}

func (a *VoteActor) handleCastVote(context actor.Context, msg *CastVoteMsg) {
	ctx := stdctx.Background()

	var (
		outcome *voting.Outcome
		err     error
	)
	switch msg.Action {
	case models.ActionUpvote:
		outcome, err = a.votes.Upvote(ctx, msg.Target, msg.VoterID)
	case models.ActionDown:
		outcome, err = a.votes.Downvote(ctx, msg.Target, msg.VoterID)
	case models.ActionCancel:
		outcome, err = a.votes.CancelVote(ctx, msg.Target, msg.VoterID)
	default:
		context.Respond(utils.NewValidationError("unknown vote action"))
		return
	}
	if err != nil {
		context.Respond(asAppError(err, "failed to process vote"))
		return
	}
	context.Respond(outcome)
}

func (a *VoteActor) handleVoterState(context actor.Context, msg *GetVoterStateMsg) {
	votes, err := a.votes.VoterState(stdctx.Background(), msg.Kind, msg.TargetIDs, msg.VoterID)
	if err != nil {
		context.Respond(asAppError(err, "failed to fetch voter state"))
		return
	}
	context.Respond(&VoterStateResponse{Votes: votes})
}

func (a *VoteActor) handleMyVote(context actor.Context, msg *GetMyVoteMsg) {
	value, err := a.votes.MyVote(stdctx.Background(), msg.Target, msg.VoterID)
	if err != nil {
		context.Respond(asAppError(err, "failed to fetch vote"))
		return
	}
	context.Respond(value)
}

// asAppError passes AppErrors through unchanged and wraps anything else
// so handlers always get a code they can map to a status.
func asAppError(err error, fallback string) *utils.AppError {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, fallback, err)
}

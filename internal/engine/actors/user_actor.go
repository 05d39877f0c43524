package actors

import (
	stdctx "context"
	"mossboard/internal/users"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message types for UserActor
type (
	RegisterUserMsg struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginMsg struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	GetUserMsg struct {
		UserID uuid.UUID `json:"userId"`
	}
)

// UserActor manages account registration, login and lookup. Moderation
// flags are set through the users service directly; they have no
// request-driven message path.
type UserActor struct {
	users *users.Service
	log   zerolog.Logger
}

func NewUserActor(svc *users.Service, log zerolog.Logger) actor.Actor {
	return &UserActor{
		users: svc,
		log:   log.With().Str("actor", "user").Logger(),
	}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log.Debug().Str("pid", context.Self().String()).Msg("user actor started")

	case *RegisterUserMsg:
		user, err := a.users.Register(stdctx.Background(), msg.Username, msg.Email, msg.Password)
		if err != nil {
			context.Respond(asAppError(err, "failed to register user"))
			return
		}
		context.Respond(user)

	case *LoginMsg:
		user, err := a.users.Authenticate(stdctx.Background(), msg.Email, msg.Password)
		if err != nil {
			context.Respond(asAppError(err, "login failed"))
			return
		}
		context.Respond(user)

	case *GetUserMsg:
		user, err := a.users.Get(stdctx.Background(), msg.UserID)
		if err != nil {
			context.Respond(asAppError(err, "failed to fetch user"))
			return
		}
		context.Respond(user)
	}
}

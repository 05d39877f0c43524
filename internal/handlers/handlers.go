package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"mossboard/internal/engine"
	"mossboard/internal/middleware"
	"mossboard/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	Auth           *middleware.Authenticator
	Log            zerolog.Logger
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	auth *middleware.Authenticator,
	log zerolog.Logger,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		Auth:           auth,
		Log:            log.With().Str("component", "http").Logger(),
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// ask sends a message to an actor and waits for its reply.
func (s *Server) ask(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

// respond writes an actor reply as JSON, mapping AppErrors onto HTTP
// statuses. Every handler funnels its actor result through here.
func (s *Server) respond(w http.ResponseWriter, result interface{}, err error) {
	if err != nil {
		s.Log.Error().Err(err).Msg("actor request failed")
		s.Metrics.IncrementErrors()
		http.Error(w, "Request timed out", http.StatusGatewayTimeout)
		return
	}

	if appErr, ok := result.(*utils.AppError); ok {
		s.Metrics.IncrementErrors()
		s.writeError(w, appErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.Log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, appErr *utils.AppError) {
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  appErr.Code,
		"error": appErr.Message,
	})
}

// requesterID pulls the authenticated user out of the request context.
func requesterID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetUserIDFromContext(r.Context())
}

// viewerID is like requesterID but tolerates anonymous requests.
func viewerID(r *http.Request) uuid.UUID {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return id
	}
	return uuid.Nil
}

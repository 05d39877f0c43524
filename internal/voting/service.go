package voting

import (
	"context"
	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/moderation"
	"mossboard/internal/utils"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Concurrency conflicts are retried with the decision re-evaluated against
// fresh state, then surfaced as a transient failure.
const defaultMaxAttempts = 3

// Service owns the vote toggle state machine and the vote record lifecycle.
// Vote records are written by nobody else; aggregate counters move only
// through the Votable delta primitive inside the unit of work.
type Service struct {
	store       database.Adapter
	guard       moderation.MemberGuard
	metrics     *utils.MetricsCollector
	log         zerolog.Logger
	maxAttempts int
}

func NewService(store database.Adapter, guard moderation.MemberGuard, metrics *utils.MetricsCollector, log zerolog.Logger) *Service {
	return &Service{
		store:       store,
		guard:       guard,
		metrics:     metrics,
		log:         log.With().Str("component", "voting").Logger(),
		maxAttempts: defaultMaxAttempts,
	}
}

// Outcome describes what one vote call did.
type Outcome struct {
	Target    models.TargetRef `json:"target"`
	Previous  int              `json:"previous"` // vote value before the call, 0 = none
	Current   int              `json:"current"`  // vote value after the call, 0 = none
	Upvotes   int              `json:"upvotes"`
	Downvotes int              `json:"downvotes"`
	Score     int              `json:"score"`
	Changed   bool             `json:"changed"` // false for a true no-op cancel
}

func (s *Service) Upvote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*Outcome, error) {
	return s.apply(ctx, ref, voterID, models.ActionUpvote)
}

func (s *Service) Downvote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*Outcome, error) {
	return s.apply(ctx, ref, voterID, models.ActionDown)
}

func (s *Service) CancelVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*Outcome, error) {
	return s.apply(ctx, ref, voterID, models.ActionCancel)
}

// transition maps (current vote state, requested action) to the new state.
// Repeating the same direction toggles the vote off.
func transition(current int, action models.VoteAction) int {
	switch action {
	case models.ActionUpvote:
		if current == models.VoteValueUp {
			return 0
		}
		return models.VoteValueUp
	case models.ActionDown:
		if current == models.VoteValueDown {
			return 0
		}
		return models.VoteValueDown
	default: // cancel
		return 0
	}
}

func (s *Service) apply(ctx context.Context, ref models.TargetRef, voterID uuid.UUID, action models.VoteAction) (*Outcome, error) {
	start := time.Now()
	s.metrics.IncrementRequests()

	// Validation failures never reach the store.
	if voterID == uuid.Nil {
		s.metrics.IncrementErrors()
		return nil, utils.NewValidationError("voter identity is required")
	}
	if ref.ID == uuid.Nil {
		s.metrics.IncrementErrors()
		return nil, utils.NewValidationError("vote target is required")
	}
	if ref.Kind != models.PostTarget && ref.Kind != models.CommentTarget {
		s.metrics.IncrementErrors()
		return nil, utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}

	if err := s.guard.CheckMember(ctx, voterID); err != nil {
		s.metrics.IncrementErrors()
		return nil, err
	}

	var outcome *Outcome
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		outcome, err = s.tryApply(ctx, ref, voterID, action)
		if err == nil {
			s.metrics.AddOperationLatency("vote."+string(action), time.Since(start))
			return outcome, nil
		}
		if !utils.IsRetryableConflict(err) {
			s.metrics.IncrementErrors()
			return nil, err
		}
		s.metrics.IncrementConflicts()
		s.log.Debug().
			Str("target", ref.String()).
			Str("voter", voterID.String()).
			Int("attempt", attempt).
			Msg("vote conflict, retrying with fresh state")
	}

	s.metrics.IncrementErrors()
	return nil, utils.NewAppError(utils.ErrRetriesExhausted,
		"vote on "+ref.String()+" kept conflicting", err)
}

// tryApply runs one full state-machine decision inside the unit of work.
// The existing vote is re-read inside the transaction: reads done outside
// are never the basis for a write.
func (s *Service) tryApply(ctx context.Context, ref models.TargetRef, voterID uuid.UUID, action models.VoteAction) (*Outcome, error) {
	var outcome *Outcome

	err := s.store.InVoteTx(ctx, func(tx database.VoteTx) error {
		target, err := tx.LoadVotable(ctx, ref)
		if err != nil {
			return err
		}
		if err := target.CheckVotable(); err != nil {
			return err
		}

		existing, err := tx.FindVote(ctx, ref, voterID)
		if err != nil {
			return err
		}

		oldValue := 0
		if existing != nil {
			oldValue = existing.Value
		}
		newValue := transition(oldValue, action)

		if newValue == oldValue {
			// Canceling a vote that does not exist: no writes at all.
			up, down := target.VoteCounts()
			outcome = &Outcome{
				Target:    ref,
				Previous:  oldValue,
				Current:   newValue,
				Upvotes:   up,
				Downvotes: down,
				Score:     up - down,
			}
			return nil
		}

		now := time.Now()
		switch {
		case newValue == 0:
			if err := tx.RemoveVote(ctx, ref, voterID); err != nil {
				return err
			}
		case existing == nil:
			vote := &models.Vote{
				ID:        uuid.New(),
				VoterID:   voterID,
				TargetID:  ref.ID,
				Kind:      ref.Kind,
				Value:     newValue,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.PutVote(ctx, vote); err != nil {
				return err
			}
		default:
			existing.Value = newValue
			existing.UpdatedAt = now
			if err := tx.PutVote(ctx, existing); err != nil {
				return err
			}
		}

		target.ApplyVoteDelta(oldValue, newValue)
		if err := tx.SaveVotable(ctx, target); err != nil {
			return err
		}

		up, down := target.VoteCounts()
		outcome = &Outcome{
			Target:    ref,
			Previous:  oldValue,
			Current:   newValue,
			Upvotes:   up,
			Downvotes: down,
			Score:     up - down,
			Changed:   true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// VoterState resolves one voter's current votes across many targets of one
// kind in a single batched read. Anonymous viewers get an empty map.
func (s *Service) VoterState(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	if voterID == uuid.Nil || len(targetIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	return s.store.FindVotesForVoter(ctx, kind, targetIDs, voterID)
}

// MyVote returns the voter's current vote on a single target, 0 when none.
func (s *Service) MyVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (int, error) {
	if voterID == uuid.Nil {
		return 0, nil
	}
	vote, err := s.store.FindVote(ctx, ref, voterID)
	if err != nil {
		return 0, err
	}
	if vote == nil {
		return 0, nil
	}
	return vote.Value, nil
}

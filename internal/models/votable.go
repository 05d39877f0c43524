package models

// Votable is the capability shared by Post and Comment: both carry
// denormalized vote counters guarded by an optimistic version token.
// ApplyVoteDelta is the only legal mutator of the counters.
type Votable interface {
	Ref() TargetRef
	VoteCounts() (up int, down int)
	ApplyVoteDelta(oldValue, newValue int)
	// CheckVotable reports whether the entity is in a lifecycle state that
	// accepts votes (archived posts and deleted comments do not).
	CheckVotable() error
	VersionToken() int64
	BumpVersion()
}

// applyVoteDelta translates an (old, new) vote value pair into counter
// deltas and applies them, clamping each counter at zero. A would-be
// negative counter indicates a prior inconsistency and decrements are
// dropped rather than surfaced as errors.
func applyVoteDelta(up, down *int, oldValue, newValue int) {
	if oldValue == VoteValueUp {
		*up--
	}
	if oldValue == VoteValueDown {
		*down--
	}
	if newValue == VoteValueUp {
		*up++
	}
	if newValue == VoteValueDown {
		*down++
	}
	if *up < 0 {
		*up = 0
	}
	if *down < 0 {
		*down = 0
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetKind identifies the kind of content a vote points at.
type TargetKind string

const (
	PostTarget    TargetKind = "post"
	CommentTarget TargetKind = "comment"
)

// TargetRef identifies one votable entity.
type TargetRef struct {
	Kind TargetKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

func PostRef(id uuid.UUID) TargetRef    { return TargetRef{Kind: PostTarget, ID: id} }
func CommentRef(id uuid.UUID) TargetRef { return TargetRef{Kind: CommentTarget, ID: id} }

func (r TargetRef) String() string {
	return string(r.Kind) + "/" + r.ID.String()
}

// Vote values. A neutral vote is represented by the absence of a record,
// never by a stored zero.
const (
	VoteValueUp   = 1
	VoteValueDown = -1
)

// Vote is one member's current opinion on one target.
// At most one Vote exists per (target, voter) pair.
type Vote struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	VoterID   uuid.UUID  `json:"voterId" db:"voter_id"`
	TargetID  uuid.UUID  `json:"targetId" db:"target_id"`
	Kind      TargetKind `json:"targetKind" db:"target_kind"`
	Value     int        `json:"value" db:"value"` // +1 or -1
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// VoteAction is what a caller asks the vote service to do.
type VoteAction string

const (
	ActionUpvote VoteAction = "up"
	ActionDown   VoteAction = "down"
	ActionCancel VoteAction = "cancel"
)

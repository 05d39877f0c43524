package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a member account. The core only reads Banned from it; identity
// resolution happens at the presentation boundary.
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"password_hash"`
	Banned         bool      `json:"banned" db:"banned"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// StatusResponse is a generic success/failure payload.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

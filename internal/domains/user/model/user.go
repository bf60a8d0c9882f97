package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can own catalog entries and rate books. The
// password hash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

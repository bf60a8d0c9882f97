package model

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry owned by the user who created it. ID and OwnerID
// are server-assigned and immutable; exactly one live image asset is bound
// at any time via AssetKey.
type Book struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"ownerId"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Year          int       `json:"year"`
	Genre         string    `json:"genre"`
	AssetKey      string    `json:"-"`
	ImageURL      string    `json:"imageUrl"`
	Ratings       []Rating  `json:"ratings"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Rating is one user's grade for a book. A user appears at most once in a
// book's ratings.
type Rating struct {
	UserID uuid.UUID `json:"userId"`
	Grade  int       `json:"grade"`
}

// ComputeAverage returns the arithmetic mean of the grades, 0 for an empty
// slice.
func ComputeAverage(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Grade
	}
	return float64(sum) / float64(len(ratings))
}

// BookPatch carries owner-editable fields for an update. Nil fields are left
// unchanged. ID and OwnerID are deliberately absent: they can never be
// patched.
type BookPatch struct {
	Title    *string
	Author   *string
	Year     *int
	Genre    *string
	AssetKey *string
	ImageURL *string
}

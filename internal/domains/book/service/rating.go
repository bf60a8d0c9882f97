package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"grimoire-backend/internal/config"
	"grimoire-backend/internal/domains/book/model"
	"grimoire-backend/internal/domains/book/repository"
)

// RatingAggregator enforces one grade per user per book and keeps the
// stored average equal to the arithmetic mean of all grades. The uniqueness
// check itself is delegated to the repository's atomic insert: application
// code never does a read-then-write on the ratings set.
type RatingAggregator struct {
	repo   repository.RepositoryInterface
	bounds config.RatingConfig
}

func NewRatingAggregator(repo repository.RepositoryInterface, bounds config.RatingConfig) *RatingAggregator {
	return &RatingAggregator{
		repo:   repo,
		bounds: bounds,
	}
}

// Submit appends the caller's grade and returns the book with its
// recomputed average.
func (a *RatingAggregator) Submit(ctx context.Context, book *model.Book, userID uuid.UUID, grade int) (*model.Book, error) {
	if grade < a.bounds.MinGrade || grade > a.bounds.MaxGrade {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]",
			model.ErrGradeOutOfRange, grade, a.bounds.MinGrade, a.bounds.MaxGrade)
	}

	return a.repo.InsertRating(ctx, book.ID, userID, grade)
}

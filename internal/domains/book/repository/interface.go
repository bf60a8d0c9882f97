package repository

import (
	"context"

	"github.com/google/uuid"

	"grimoire-backend/internal/domains/book/model"
)

// RepositoryInterface is the persistence boundary for books. Insert assigns
// the id; lookup methods return model.ErrBookNotFound when the id does not
// resolve. InsertRating is the atomic rating path: duplicate rejection and
// average recomputation happen inside one transaction at this boundary, so
// concurrent submissions for the same (book, user) admit exactly one winner.
type RepositoryInterface interface {
	Insert(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	Update(ctx context.Context, id uuid.UUID, patch model.BookPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListTopRated(ctx context.Context, limit int) ([]model.Book, error)
	InsertRating(ctx context.Context, bookID, userID uuid.UUID, grade int) (*model.Book, error)
	// ListAssetKeys reports every asset key referenced by a live book, for
	// the orphan-reconciliation sweep.
	ListAssetKeys(ctx context.Context) ([]string, error)
}

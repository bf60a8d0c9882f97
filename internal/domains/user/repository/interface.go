package repository

import (
	"context"

	"github.com/google/uuid"

	"grimoire-backend/internal/domains/user/model"
)

type RepositoryInterface interface {
	Insert(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

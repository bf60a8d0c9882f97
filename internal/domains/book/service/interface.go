package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"grimoire-backend/internal/domains/book/model"
)

// ServiceInterface is the orchestration surface for the book catalog.
// Mutations take the verified caller identity; reads are public.
type ServiceInterface interface {
	CreateBook(ctx context.Context, callerID uuid.UUID, req model.CreateBookRequest, image []byte) (*model.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	TopRatedBooks(ctx context.Context) ([]model.Book, error)
	UpdateBook(ctx context.Context, id, callerID uuid.UUID, req model.UpdateBookRequest, image []byte) (*model.Book, error)
	DeleteBook(ctx context.Context, id, callerID uuid.UUID) error
	RateBook(ctx context.Context, id, callerID uuid.UUID, grade int) (*model.Book, error)
	ExportBooks(ctx context.Context) (*excelize.File, error)
}

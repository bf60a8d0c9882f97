package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"grimoire-backend/internal/domains/book/model"
	"grimoire-backend/internal/domains/book/repository"
	"grimoire-backend/pkg/cache"
	"grimoire-backend/pkg/logger"
)

const (
	cacheKeyList    = "books:list"
	cacheKeyTop     = "books:top"
	cacheTTL        = 10 * time.Minute
	detailKeyPrefix = "books:detail:"
)

// BookService orchestrates the catalog: image handling goes through the
// asset manager, ownership through EnsureOwner, rating math through the
// aggregator, persistence through the repository.
type BookService struct {
	repo       repository.RepositoryInterface
	assets     AssetManager
	aggregator *RatingAggregator
	cache      cache.Cache
	topLimit   int
}

func NewService(
	repo repository.RepositoryInterface,
	assets AssetManager,
	aggregator *RatingAggregator,
	c cache.Cache,
	topLimit int,
) ServiceInterface {
	return &BookService{
		repo:       repo,
		assets:     assets,
		aggregator: aggregator,
		cache:      c,
		topLimit:   topLimit,
	}
}

func detailKey(id uuid.UUID) string {
	return detailKeyPrefix + id.String()
}

// invalidate drops every cache entry a mutation may have staled. Cache
// failures are logged, never surfaced.
func (s *BookService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cacheKeyList, cacheKeyTop, detailKey(id)); err != nil {
		logger.Warn("cache invalidation failed", map[string]interface{}{
			"book_id": id.String(),
			"error":   err.Error(),
		})
	}
}

// CreateBook stores the normalized image first, then the record. The
// request type carries no id or owner field, so whatever the client sent
// under those keys is already gone; ownership comes solely from the
// verified caller.
func (s *BookService) CreateBook(ctx context.Context, callerID uuid.UUID, req model.CreateBookRequest, image []byte) (*model.Book, error) {
	if len(image) == 0 {
		return nil, model.ErrImageRequired
	}

	key, url, err := s.assets.Store(ctx, image)
	if err != nil {
		return nil, err
	}

	book := &model.Book{
		OwnerID:  callerID,
		Title:    req.Title,
		Author:   req.Author,
		Year:     req.Year,
		Genre:    req.Genre,
		AssetKey: key,
		ImageURL: url,
	}

	if err := s.repo.Insert(ctx, book); err != nil {
		// The record never existed; the stored asset is already orphaned.
		s.assets.Remove(ctx, key)
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.invalidate(ctx, book.ID)
	return book, nil
}

func (s *BookService) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	var cached model.Book
	if found, err := s.cache.Get(ctx, detailKey(id), &cached); err == nil && found {
		return &cached, nil
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, detailKey(id), book, cacheTTL); err != nil {
		logger.Warn("cache set failed", map[string]interface{}{"key": detailKey(id), "error": err.Error()})
	}
	return book, nil
}

func (s *BookService) ListBooks(ctx context.Context) ([]model.Book, error) {
	var cached []model.Book
	if found, err := s.cache.Get(ctx, cacheKeyList, &cached); err == nil && found {
		return cached, nil
	}

	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKeyList, books, cacheTTL); err != nil {
		logger.Warn("cache set failed", map[string]interface{}{"key": cacheKeyList, "error": err.Error()})
	}
	return books, nil
}

// TopRatedBooks returns the catalog's best-rated entries, average
// descending, truncated to the configured fixed limit.
func (s *BookService) TopRatedBooks(ctx context.Context) ([]model.Book, error) {
	var cached []model.Book
	if found, err := s.cache.Get(ctx, cacheKeyTop, &cached); err == nil && found {
		return cached, nil
	}

	books, err := s.repo.ListTopRated(ctx, s.topLimit)
	if err != nil {
		return nil, fmt.Errorf("list top rated: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKeyTop, books, cacheTTL); err != nil {
		logger.Warn("cache set failed", map[string]interface{}{"key": cacheKeyTop, "error": err.Error()})
	}
	return books, nil
}

// UpdateBook applies an owner-gated metadata patch, replacing the bound
// image asset when a new upload is attached. The patch cannot carry id or
// owner; a failed replacement aborts before anything is persisted, leaving
// the record and its old asset untouched.
func (s *BookService) UpdateBook(ctx context.Context, id, callerID uuid.UUID, req model.UpdateBookRequest, image []byte) (*model.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := EnsureOwner(book.OwnerID, callerID); err != nil {
		return nil, err
	}

	patch := req.Patch()

	if len(image) > 0 {
		key, url, err := s.assets.Replace(ctx, book.AssetKey, image)
		if err != nil {
			return nil, err
		}
		patch.AssetKey = &key
		patch.ImageURL = &url
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return s.repo.FindByID(ctx, id)
}

// DeleteBook removes the record and requests removal of its bound asset.
// Record deletion is what must succeed; asset removal is best-effort and
// cannot fail the call.
func (s *BookService) DeleteBook(ctx context.Context, id, callerID uuid.UUID) error {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := EnsureOwner(book.OwnerID, callerID); err != nil {
		return err
	}

	s.assets.Remove(ctx, book.AssetKey)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *BookService) RateBook(ctx context.Context, id, callerID uuid.UUID, grade int) (*model.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.aggregator.Submit(ctx, book, callerID, grade)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

// ExportBooks renders the catalog as a spreadsheet, one row per book.
func (s *BookService) ExportBooks(ctx context.Context) (*excelize.File, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Catalog"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Title", "Author", "Year", "Genre", "Average Rating", "Rating Count", "Image URL", "Created At"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetCellStyle(sheet, "A1", "I1", style)
	}

	for i, b := range books {
		row := i + 2
		set := func(col int, value interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			f.SetCellValue(sheet, cell, value)
		}
		set(1, b.ID.String())
		set(2, b.Title)
		set(3, b.Author)
		set(4, b.Year)
		set(5, b.Genre)
		set(6, b.AverageRating)
		set(7, len(b.Ratings))
		set(8, b.ImageURL)
		set(9, b.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.SetColWidth(sheet, "A", "I", 18); err != nil {
		logger.Warn("failed to set column width", map[string]interface{}{"error": err.Error()})
	}

	return f, nil
}

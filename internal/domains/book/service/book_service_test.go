package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimoire-backend/internal/config"
	"grimoire-backend/internal/domains/book/model"
)

// fakeRepo is an in-memory repository mirroring the persistence contract,
// including the atomic one-vote-per-user semantics of InsertRating.
type fakeRepo struct {
	books     map[uuid.UUID]*model.Book
	insertErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{books: make(map[uuid.UUID]*model.Book)}
}

func (r *fakeRepo) Insert(_ context.Context, book *model.Book) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	book.ID = uuid.New()
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	stored := *book
	r.books[book.ID] = &stored
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, model.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context) ([]model.Book, error) {
	out := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, *b)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, patch model.BookPatch) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	b, ok := r.books[id]
	if !ok {
		return model.ErrBookNotFound
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Author != nil {
		b.Author = *patch.Author
	}
	if patch.Year != nil {
		b.Year = *patch.Year
	}
	if patch.Genre != nil {
		b.Genre = *patch.Genre
	}
	if patch.AssetKey != nil {
		b.AssetKey = *patch.AssetKey
	}
	if patch.ImageURL != nil {
		b.ImageURL = *patch.ImageURL
	}
	b.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.books[id]; !ok {
		return model.ErrBookNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeRepo) ListTopRated(_ context.Context, limit int) ([]model.Book, error) {
	out := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) InsertRating(_ context.Context, bookID, userID uuid.UUID, grade int) (*model.Book, error) {
	b, ok := r.books[bookID]
	if !ok {
		return nil, model.ErrBookNotFound
	}
	for _, rating := range b.Ratings {
		if rating.UserID == userID {
			return nil, model.ErrDuplicateRating
		}
	}
	b.Ratings = append(b.Ratings, model.Rating{UserID: userID, Grade: grade})
	b.AverageRating = model.ComputeAverage(b.Ratings)
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) ListAssetKeys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(r.books))
	for _, b := range r.books {
		keys = append(keys, b.AssetKey)
	}
	return keys, nil
}

// fakeAssets records lifecycle calls instead of touching a blob store.
type fakeAssets struct {
	storeErr error
	stored   []string
	removed  []string
	counter  int
}

func (a *fakeAssets) Store(_ context.Context, raw []byte) (string, string, error) {
	if a.storeErr != nil {
		return "", "", a.storeErr
	}
	a.counter++
	key := fmt.Sprintf("books/test-%d.jpg", a.counter)
	a.stored = append(a.stored, key)
	return key, "http://assets.local/" + key, nil
}

func (a *fakeAssets) Replace(ctx context.Context, oldKey string, raw []byte) (string, string, error) {
	key, url, err := a.Store(ctx, raw)
	if err != nil {
		return "", "", err
	}
	if oldKey != "" {
		a.Remove(ctx, oldKey)
	}
	return key, url, nil
}

func (a *fakeAssets) Remove(_ context.Context, key string) {
	a.removed = append(a.removed, key)
}

// missCache always misses and swallows writes.
type missCache struct{}

func (missCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (missCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (missCache) Delete(context.Context, ...string) error     { return nil }
func (missCache) DeletePattern(context.Context, string) error { return nil }
func (missCache) Ping(context.Context) error                  { return nil }

func defaultBounds() config.RatingConfig {
	return config.RatingConfig{MinGrade: 0, MaxGrade: 5}
}

func newTestService(repo *fakeRepo, assets *fakeAssets) ServiceInterface {
	return NewService(repo, assets, NewRatingAggregator(repo, defaultBounds()), missCache{}, 3)
}

func createTestBook(t *testing.T, svc ServiceInterface, owner uuid.UUID) *model.Book {
	t.Helper()
	book, err := svc.CreateBook(context.Background(), owner, model.CreateBookRequest{
		Title:  "The Once and Future King",
		Author: "T.H. White",
		Year:   1958,
		Genre:  "Fantasy",
	}, []byte("raw-image-bytes"))
	require.NoError(t, err)
	return book
}

func TestCreateBook_AssignsOwnerAndBindsAsset(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()

	book := createTestBook(t, svc, owner)

	assert.Equal(t, owner, book.OwnerID)
	assert.NotEqual(t, uuid.Nil, book.ID)
	assert.NotEmpty(t, book.AssetKey)
	assert.NotEmpty(t, book.ImageURL)
	assert.Len(t, assets.stored, 1)

	persisted, err := repo.FindByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.AssetKey, persisted.AssetKey)
}

func TestCreateBook_RequiresImage(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)

	_, err := svc.CreateBook(context.Background(), uuid.New(), model.CreateBookRequest{
		Title: "No Cover", Author: "Anon", Year: 2020,
	}, nil)

	assert.ErrorIs(t, err, model.ErrImageRequired)
	assert.Empty(t, repo.books)
	assert.Empty(t, assets.stored)
}

func TestCreateBook_ReclaimsAssetWhenInsertFails(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = errors.New("connection reset")
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)

	_, err := svc.CreateBook(context.Background(), uuid.New(), model.CreateBookRequest{
		Title: "Doomed", Author: "Anon", Year: 2020,
	}, []byte("raw"))

	require.Error(t, err)
	require.Len(t, assets.stored, 1)
	assert.Equal(t, assets.stored, assets.removed)
}

func TestUpdateBook_NonOwnerIsRejectedUnchanged(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()
	book := createTestBook(t, svc, owner)

	title := "Hijacked"
	_, err := svc.UpdateBook(context.Background(), book.ID, uuid.New(), model.UpdateBookRequest{Title: &title}, nil)

	assert.ErrorIs(t, err, model.ErrNotOwner)

	persisted, findErr := repo.FindByID(context.Background(), book.ID)
	require.NoError(t, findErr)
	assert.Equal(t, "The Once and Future King", persisted.Title)
}

func TestUpdateBook_PatchesMetadataWithoutTouchingAsset(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()
	book := createTestBook(t, svc, owner)

	title := "The Sword in the Stone"
	updated, err := svc.UpdateBook(context.Background(), book.ID, owner, model.UpdateBookRequest{Title: &title}, nil)
	require.NoError(t, err)

	assert.Equal(t, title, updated.Title)
	assert.Equal(t, book.AssetKey, updated.AssetKey)
	assert.Equal(t, "T.H. White", updated.Author)
	assert.Empty(t, assets.removed)
}

func TestUpdateBook_ReplacesAssetAndRemovesOldOne(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()
	book := createTestBook(t, svc, owner)

	updated, err := svc.UpdateBook(context.Background(), book.ID, owner, model.UpdateBookRequest{}, []byte("new-image"))
	require.NoError(t, err)

	assert.NotEqual(t, book.AssetKey, updated.AssetKey)
	assert.Contains(t, assets.removed, book.AssetKey)
}

func TestUpdateBook_FailedReplacementLeavesRecordAndAsset(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()
	book := createTestBook(t, svc, owner)

	assets.storeErr = model.ErrInvalidImage
	title := "Should Not Land"
	_, err := svc.UpdateBook(context.Background(), book.ID, owner, model.UpdateBookRequest{Title: &title}, []byte("garbage"))

	assert.ErrorIs(t, err, model.ErrInvalidImage)

	persisted, findErr := repo.FindByID(context.Background(), book.ID)
	require.NoError(t, findErr)
	assert.Equal(t, "The Once and Future King", persisted.Title)
	assert.Equal(t, book.AssetKey, persisted.AssetKey)
	assert.Empty(t, assets.removed)
}

func TestDeleteBook_RemovesRecordAndRequestsAssetRemoval(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	owner := uuid.New()
	book := createTestBook(t, svc, owner)

	require.NoError(t, svc.DeleteBook(context.Background(), book.ID, owner))

	_, err := repo.FindByID(context.Background(), book.ID)
	assert.ErrorIs(t, err, model.ErrBookNotFound)
	assert.Contains(t, assets.removed, book.AssetKey)
}

func TestDeleteBook_NonOwnerIsRejected(t *testing.T) {
	repo := newFakeRepo()
	assets := &fakeAssets{}
	svc := newTestService(repo, assets)
	book := createTestBook(t, svc, uuid.New())

	err := svc.DeleteBook(context.Background(), book.ID, uuid.New())

	assert.ErrorIs(t, err, model.ErrNotOwner)
	_, findErr := repo.FindByID(context.Background(), book.ID)
	assert.NoError(t, findErr)
	assert.Empty(t, assets.removed)
}

func TestRateBook_MaintainsAverageAndRejectsSecondVote(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAssets{})
	book := createTestBook(t, svc, uuid.New())
	alice, bob := uuid.New(), uuid.New()

	rated, err := svc.RateBook(context.Background(), book.ID, alice, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rated.AverageRating, 1e-9)

	rated, err = svc.RateBook(context.Background(), book.ID, bob, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, rated.AverageRating, 1e-9)

	_, err = svc.RateBook(context.Background(), book.ID, alice, 1)
	assert.ErrorIs(t, err, model.ErrDuplicateRating)

	persisted, findErr := repo.FindByID(context.Background(), book.ID)
	require.NoError(t, findErr)
	assert.InDelta(t, 4.0, persisted.AverageRating, 1e-9)
	assert.Len(t, persisted.Ratings, 2)
}

func TestRateBook_RejectsOutOfRangeGrade(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAssets{})
	book := createTestBook(t, svc, uuid.New())

	_, err := svc.RateBook(context.Background(), book.ID, uuid.New(), 6)
	assert.ErrorIs(t, err, model.ErrGradeOutOfRange)

	_, err = svc.RateBook(context.Background(), book.ID, uuid.New(), -1)
	assert.ErrorIs(t, err, model.ErrGradeOutOfRange)
}

func TestRateBook_UnknownBook(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAssets{})

	_, err := svc.RateBook(context.Background(), uuid.New(), uuid.New(), 3)
	assert.ErrorIs(t, err, model.ErrBookNotFound)
}

func TestTopRatedBooks_TruncatesToLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAssets{})

	for i := 0; i < 5; i++ {
		book := createTestBook(t, svc, uuid.New())
		_, err := svc.RateBook(context.Background(), book.ID, uuid.New(), i)
		require.NoError(t, err)
	}

	top, err := svc.TopRatedBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.InDelta(t, 4.0, top[0].AverageRating, 1e-9)
	assert.True(t, top[0].AverageRating >= top[1].AverageRating)
	assert.True(t, top[1].AverageRating >= top[2].AverageRating)
}

func TestExportBooks_ProducesCatalogSheet(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAssets{})
	book := createTestBook(t, svc, uuid.New())

	f, err := svc.ExportBooks(context.Background())
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Catalog", "B2")
	require.NoError(t, err)
	assert.Equal(t, book.Title, title)

	header, err := f.GetCellValue("Catalog", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
}

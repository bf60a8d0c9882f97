package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"grimoire-backend/internal/domains/book/model"
)

const pgForeignKeyViolation = "23503"

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const bookColumns = `id, owner_id, title, author, year, genre, asset_key, image_url,
	average_rating, rating_count, created_at, updated_at`

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	var ratingCount int
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Title,
		&b.Author,
		&b.Year,
		&b.Genre,
		&b.AssetKey,
		&b.ImageURL,
		&b.AverageRating,
		&ratingCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Ratings = []model.Rating{}
	return &b, nil
}

// Insert stores a new book and assigns its id.
func (r *postgresRepository) Insert(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (owner_id, title, author, year, genre, asset_key, image_url, average_rating, rating_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		book.OwnerID,
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.AssetKey,
		book.ImageURL,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	book.Ratings = []model.Rating{}
	book.AverageRating = 0
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1`, bookColumns)

	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}

	if err := r.attachRatings(ctx, []*model.Book{book}); err != nil {
		return nil, err
	}
	return book, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]model.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books ORDER BY created_at DESC, id`, bookColumns)
	return r.queryBooks(ctx, query)
}

// ListTopRated orders by average rating descending; ties break on creation
// time then id, which keeps the order stable across calls.
func (r *postgresRepository) ListTopRated(ctx context.Context, limit int) ([]model.Book, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM books ORDER BY average_rating DESC, created_at, id LIMIT $1`,
		bookColumns,
	)
	return r.queryBooks(ctx, query, limit)
}

func (r *postgresRepository) queryBooks(ctx context.Context, query string, args ...interface{}) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var ptrs []*model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		ptrs = append(ptrs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.attachRatings(ctx, ptrs); err != nil {
		return nil, err
	}

	books := make([]model.Book, len(ptrs))
	for i, p := range ptrs {
		books[i] = *p
	}
	return books, nil
}

// attachRatings loads the rating rows for the given books in one query.
func (r *postgresRepository) attachRatings(ctx context.Context, books []*model.Book) error {
	if len(books) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*model.Book, len(books))
	ids := make([]uuid.UUID, len(books))
	for i, b := range books {
		byID[b.ID] = b
		ids[i] = b.ID
	}

	rows, err := r.pool.Query(ctx,
		`SELECT book_id, user_id, grade FROM book_ratings WHERE book_id = ANY($1) ORDER BY created_at, user_id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID uuid.UUID
		var rating model.Rating
		if err := rows.Scan(&bookID, &rating.UserID, &rating.Grade); err != nil {
			return fmt.Errorf("scan rating: %w", err)
		}
		if b, ok := byID[bookID]; ok {
			b.Ratings = append(b.Ratings, rating)
		}
	}
	return rows.Err()
}

// Update applies a partial patch. Owner and id columns are not touchable
// from here by construction.
func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, patch model.BookPatch) error {
	sets := []string{}
	args := []interface{}{}
	arg := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Author != nil {
		add("author", *patch.Author)
	}
	if patch.Year != nil {
		add("year", *patch.Year)
	}
	if patch.Genre != nil {
		add("genre", *patch.Genre)
	}
	if patch.AssetKey != nil {
		add("asset_key", *patch.AssetKey)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}

	if len(sets) == 0 {
		// Nothing to change; still report NotFound for a dead id.
		_, err := r.FindByID(ctx, id)
		return err
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d`, strings.Join(sets, ", "), arg)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

// InsertRating appends a grade and recomputes the stored average inside one
// transaction. The (book_id, user_id) primary key makes duplicate rejection
// atomic: under concurrent submissions exactly one insert lands, every other
// one observes zero affected rows.
func (r *postgresRepository) InsertRating(ctx context.Context, bookID, userID uuid.UUID, grade int) (*model.Book, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO book_ratings (book_id, user_id, grade)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (book_id, user_id) DO NOTHING`,
		bookID, userID, grade,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, model.ErrBookNotFound
		}
		return nil, fmt.Errorf("insert rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrDuplicateRating
	}

	_, err = tx.Exec(ctx,
		`UPDATE books
		 SET average_rating = sub.avg, rating_count = sub.cnt, updated_at = now()
		 FROM (
			SELECT COALESCE(AVG(grade), 0)::double precision AS avg, COUNT(*) AS cnt
			FROM book_ratings WHERE book_id = $1
		 ) AS sub
		 WHERE id = $1`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("recompute average: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rating tx: %w", err)
	}

	return r.FindByID(ctx, bookID)
}

func (r *postgresRepository) ListAssetKeys(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT asset_key FROM books`)
	if err != nil {
		return nil, fmt.Errorf("list asset keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan asset key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

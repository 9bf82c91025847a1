package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const bookColumns = `id, title, author, year, genre, pages, available, isbn, description, extra, created_at, updated_at`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts inside a transaction so a unique-violation surfaces
// before commit and anything else rolls the write back whole.
func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	const sql = `
		INSERT INTO books (id, title, author, year, genre, pages, available, isbn, description, extra, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = tx.QueryRow(timeoutCtx, sql,
		b.ID, b.Title, b.Author, b.Year, b.Genre, b.Pages, b.Available,
		b.ISBN, b.Description, extraArg(b.Extra),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrISBNExists
		}
		return err
	}

	return tx.Commit(timeoutCtx)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	return scanBook(row)
}

func (r *PostgresRepo) FindByISBN(ctx context.Context, isbn string) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = $1 LIMIT 1`, isbn)
	return scanBook(row)
}

// Update writes only the supplied fields and returns the updated row.
func (r *PostgresRepo) Update(ctx context.Context, id string, in UpdateInput) (Book, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	argn := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argn))
		args = append(args, v)
		argn++
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Author != nil {
		add("author", *in.Author)
	}
	if in.Year != nil {
		add("year", *in.Year)
	}
	if in.Genre != nil {
		add("genre", *in.Genre)
	}
	if in.Pages != nil {
		add("pages", *in.Pages)
	}
	if in.Available != nil {
		add("available", *in.Available)
	}
	if in.ISBN != nil {
		add("isbn", *in.ISBN)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}

	sql := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argn, bookColumns)
	args = append(args, id)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, sql, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return Book{}, ErrISBNExists
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) FindByFilters(ctx context.Context, q Query) ([]Book, error) {
	where, args := buildFilters(q)
	argn := len(args) + 1

	sql := fmt.Sprintf(`SELECT %s FROM books %s ORDER BY title ASC LIMIT $%d OFFSET $%d`,
		bookColumns, where, argn, argn+1)
	args = append(args, q.Limit, q.Offset)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountByFilters(ctx context.Context, q Query) (int, error) {
	where, args := buildFilters(q)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM books `+where, args...).Scan(&total)
	return total, err
}

func buildFilters(q Query) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Title != "" {
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", argn))
		args = append(args, "%"+q.Title+"%")
		argn++
	}
	if q.Author != "" {
		clauses = append(clauses, fmt.Sprintf("author ILIKE $%d", argn))
		args = append(args, "%"+q.Author+"%")
		argn++
	}
	if q.Genre != "" {
		clauses = append(clauses, fmt.Sprintf("genre = $%d", argn))
		args = append(args, q.Genre)
		argn++
	}
	if q.Year != nil {
		clauses = append(clauses, fmt.Sprintf("year = $%d", argn))
		args = append(args, *q.Year)
		argn++
	}
	if q.Available != nil {
		clauses = append(clauses, fmt.Sprintf("available = $%d", argn))
		args = append(args, *q.Available)
		argn++
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var b Book
	var extra []byte
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Year, &b.Genre, &b.Pages, &b.Available,
		&b.ISBN, &b.Description, &extra, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	b.Extra = extra
	return b, nil
}

// extraArg maps an absent metadata document to SQL NULL instead of an
// empty jsonb value.
func extraArg(extra []byte) any {
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

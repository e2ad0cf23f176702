// internal/inventory/postgres.go
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore keeps books in a single Postgres table.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open *sql.DB using the lib/pq driver.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

const booksDDL = `
	CREATE TABLE IF NOT EXISTS books (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		module INT NOT NULL,
		band TEXT NOT NULL,
		barcode TEXT NOT NULL,
		lesson_number INT NOT NULL DEFAULT 0,
		copy_number INT NOT NULL,
		status BOOLEAN NOT NULL DEFAULT TRUE,
		student_name TEXT NOT NULL DEFAULT '',
		cover_image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const bookColumns = `id, module, band, barcode, lesson_number, copy_number, status, student_name, cover_image, created_at, updated_at`

// EnsureSchema creates the books table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, booksDDL); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, book Book) (Book, error) {
	book = prepareNew(book, time.Now().UTC())
	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (:id, :module, :band, :barcode, :lesson_number, :copy_number, :status, :student_name, :cover_image, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, book); err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Book, error) {
	books := []Book{}
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY seq ASC`
	if err := s.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Book, error) {
	var book Book
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	if err := s.db.GetContext(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
		}
		return Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch BookPatch) (Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Book{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var book Book
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
		}
		return Book{}, fmt.Errorf("get book: %w", err)
	}

	book = patch.Apply(book)
	book.UpdatedAt = time.Now().UTC()

	update := `
		UPDATE books
		SET module = :module, band = :band, barcode = :barcode, lesson_number = :lesson_number,
			copy_number = :copy_number, status = :status, student_name = :student_name,
			cover_image = :cover_image, updated_at = :updated_at
		WHERE id = :id
	`
	if _, err := tx.NamedExecContext(ctx, update, book); err != nil {
		return Book{}, fmt.Errorf("update book: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Book{}, fmt.Errorf("commit transaction: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (Book, error) {
	var book Book
	query := `DELETE FROM books WHERE id = $1 RETURNING ` + bookColumns
	if err := s.db.GetContext(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
		}
		return Book{}, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

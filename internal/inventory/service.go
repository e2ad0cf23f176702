// internal/inventory/service.go
package inventory

import (
	"context"

	"lessonlink/internal/journal"
)

// Service defines the inventory operations behind the REST API.
type Service interface {
	AddBook(ctx context.Context, book Book) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id string) (*Book, error)
	UpdateBook(ctx context.Context, id string, patch BookPatch) (*Book, error)
	DeleteBook(ctx context.Context, id string) (*Book, error)
	History(ctx context.Context, id string) ([]journal.Entry, error)
}

// internal/inventory/store.go
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the book collection. Implementations assign an ID on Create when
// the book has none and keep List in insertion order.
type Store interface {
	Create(ctx context.Context, book Book) (Book, error)
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id string) (Book, error)
	Update(ctx context.Context, id string, patch BookPatch) (Book, error)
	Delete(ctx context.Context, id string) (Book, error)
}

// prepareNew fills the server-owned fields of a book about to be inserted.
func prepareNew(book Book, now time.Time) Book {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	book.CreatedAt = now
	book.UpdatedAt = now
	book.Normalize()
	return book
}

// MemoryStore keeps books in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	books map[string]Book
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]Book),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, book Book) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book = prepareNew(book, s.now())
	if _, exists := s.books[book.ID]; exists {
		return Book{}, fmt.Errorf("%w: duplicate _id %s", ErrInvalidBook, book.ID)
	}
	s.books[book.ID] = book
	s.order = append(s.order, book.ID)
	return book, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.books[id])
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[id]
	if !ok {
		return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	return book, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch BookPatch) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	book = patch.Apply(book)
	book.UpdatedAt = s.now()
	s.books[id] = book
	return book, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	delete(s.books, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return book, nil
}

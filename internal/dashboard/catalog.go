package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lessonlink/internal/inventory"
)

// API is the remote inventory the catalog mirrors.
type API interface {
	ListBooks(ctx context.Context) ([]inventory.Book, error)
	AddBook(ctx context.Context, book inventory.Book) (*inventory.Book, error)
	UpdateBook(ctx context.Context, id string, patch inventory.BookPatch) (*inventory.Book, error)
	DeleteBook(ctx context.Context, id string) (*inventory.Book, error)
}

type MutationState int

const (
	Pending MutationState = iota
	Confirmed
	Failed
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type MutationKind string

const (
	KindAdd      MutationKind = "add"
	KindCheckout MutationKind = "checkout"
	KindCheckin  MutationKind = "checkin"
	KindEdit     MutationKind = "edit"
	KindDelete   MutationKind = "delete"
)

// Mutation is one local change and its reconciliation with the remote
// inventory. Prev is nil for adds and Next is nil for deletes.
type Mutation struct {
	ID     uuid.UUID
	BookID string
	Kind   MutationKind
	Prev   *inventory.Book
	Next   *inventory.Book
	State  MutationState
	Err    error
	At     time.Time
}

// Catalog is the local copy of the inventory. Mutations are applied
// locally as pending, then replaced by the server's document or rolled
// back when the remote call fails.
type Catalog struct {
	api API
	log logrus.FieldLogger

	mu        sync.Mutex
	books     []inventory.Book
	mutations []Mutation
}

func NewCatalog(api API, log logrus.FieldLogger) *Catalog {
	return &Catalog{api: api, log: log}
}

// Refresh replaces the whole local list with the remote one.
func (c *Catalog) Refresh(ctx context.Context) error {
	books, err := c.api.ListBooks(ctx)
	if err != nil {
		c.log.WithError(err).Error("failed to refresh catalog")
		return fmt.Errorf("refresh catalog: %w", err)
	}

	c.mu.Lock()
	c.books = append([]inventory.Book{}, books...)
	c.mu.Unlock()
	return nil
}

// Books returns a copy of the local list in catalog order.
func (c *Catalog) Books() []inventory.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inventory.Book{}, c.books...)
}

func (c *Catalog) Book(id string) (inventory.Book, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.books[i], true
	}
	return inventory.Book{}, false
}

// Mutations returns the mutation log, oldest first.
func (c *Catalog) Mutations() []Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Mutation{}, c.mutations...)
}

func (c *Catalog) Checkout(ctx context.Context, id, student string) (inventory.Book, error) {
	book, err := c.lookup(id)
	if err != nil {
		return inventory.Book{}, err
	}
	t, err := Checkout(book, student)
	if err != nil {
		return inventory.Book{}, err
	}
	return c.update(ctx, KindCheckout, book, t)
}

// Checkin is a no-op for a book that is already available.
func (c *Catalog) Checkin(ctx context.Context, id string) (inventory.Book, error) {
	book, err := c.lookup(id)
	if err != nil {
		return inventory.Book{}, err
	}
	t, ok := Checkin(book)
	if !ok {
		return book, nil
	}
	return c.update(ctx, KindCheckin, book, t)
}

func (c *Catalog) Edit(ctx context.Context, id string, fields EditFields) (inventory.Book, error) {
	book, err := c.lookup(id)
	if err != nil {
		return inventory.Book{}, err
	}
	t, err := Edit(book, fields)
	if err != nil {
		return inventory.Book{}, err
	}
	return c.update(ctx, KindEdit, book, t)
}

// Add inserts the book locally under a client-assigned id and sends it.
func (c *Catalog) Add(ctx context.Context, book inventory.Book) (inventory.Book, error) {
	if err := book.Validate(); err != nil {
		return inventory.Book{}, err
	}
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	book.Normalize()

	c.mu.Lock()
	c.books = append(c.books, book)
	mutID := c.begin(KindAdd, book.ID, nil, &book)
	c.mu.Unlock()

	created, err := c.api.AddBook(ctx, book)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if i := c.indexOf(book.ID); i >= 0 {
			c.books = append(c.books[:i], c.books[i+1:]...)
		}
		c.fail(mutID, err)
		return inventory.Book{}, fmt.Errorf("add book: %w", err)
	}
	if i := c.indexOf(book.ID); i >= 0 {
		c.books[i] = *created
	}
	c.confirm(mutID, created)
	return *created, nil
}

// Delete removes the book only after the remote delete succeeds and then
// refetches the whole catalog. On failure the catalog is unchanged. A failed
// refetch after a confirmed delete is logged, not returned: the book is gone
// and the next Refresh reconciles the rest.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	book, err := c.lookup(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	mutID := c.begin(KindDelete, id, &book, nil)
	c.mu.Unlock()

	if _, err := c.api.DeleteBook(ctx, id); err != nil {
		c.mu.Lock()
		c.fail(mutID, err)
		c.mu.Unlock()
		return fmt.Errorf("delete book: %w", err)
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.books = append(c.books[:i], c.books[i+1:]...)
	}
	c.confirm(mutID, nil)
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		c.log.WithError(err).WithField("book_id", id).Warn("book deleted but catalog refetch failed")
	}
	return nil
}

// update applies t locally, persists it and reconciles.
func (c *Catalog) update(ctx context.Context, kind MutationKind, prev inventory.Book, t Transition) (inventory.Book, error) {
	c.mu.Lock()
	c.replace(prev.ID, t.Next)
	mutID := c.begin(kind, prev.ID, &prev, &t.Next)
	c.mu.Unlock()

	updated, err := c.api.UpdateBook(ctx, prev.ID, t.Patch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.replace(prev.ID, prev)
		c.fail(mutID, err)
		return inventory.Book{}, fmt.Errorf("%s book: %w", kind, err)
	}
	c.replace(prev.ID, *updated)
	c.confirm(mutID, updated)
	return *updated, nil
}

func (c *Catalog) lookup(id string) (inventory.Book, error) {
	book, ok := c.Book(id)
	if !ok {
		return inventory.Book{}, fmt.Errorf("book with ID %s: %w", id, inventory.ErrNotFound)
	}
	return book, nil
}

// The helpers below expect c.mu to be held.

func (c *Catalog) indexOf(id string) int {
	for i, b := range c.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) replace(id string, book inventory.Book) {
	if i := c.indexOf(id); i >= 0 {
		c.books[i] = book
	}
}

func (c *Catalog) begin(kind MutationKind, bookID string, prev, next *inventory.Book) uuid.UUID {
	m := Mutation{
		ID:     uuid.New(),
		BookID: bookID,
		Kind:   kind,
		Prev:   prev,
		Next:   next,
		State:  Pending,
		At:     time.Now(),
	}
	c.mutations = append(c.mutations, m)
	return m.ID
}

func (c *Catalog) confirm(id uuid.UUID, next *inventory.Book) {
	for i := range c.mutations {
		if c.mutations[i].ID == id {
			c.mutations[i].State = Confirmed
			if next != nil {
				c.mutations[i].Next = next
			}
			return
		}
	}
}

func (c *Catalog) fail(id uuid.UUID, err error) {
	for i := range c.mutations {
		if c.mutations[i].ID == id {
			m := &c.mutations[i]
			m.State = Failed
			m.Err = err
			c.log.WithError(err).WithFields(logrus.Fields{
				"book_id": m.BookID,
				"kind":    m.Kind,
			}).Warn("mutation rolled back")
			return
		}
	}
}

// internal/inventory/implementation.go
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"lessonlink/internal/journal"
)

// service implements the Service interface.
type service struct {
	store   Store
	journal journal.Recorder
	log     logrus.FieldLogger
}

// NewService creates a new inventory service instance.
func NewService(store Store, rec journal.Recorder, log logrus.FieldLogger) Service {
	return &service{
		store:   store,
		journal: rec,
		log:     log,
	}
}

// AddBook validates the required fields and stores the book.
func (s *service) AddBook(ctx context.Context, book Book) (*Book, error) {
	if err := book.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}

	s.record(ctx, created.ID, journal.BookAdded, created)
	return &created, nil
}

// ListBooks returns every book in insertion order.
func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// GetBook retrieves a single book by its ID.
func (s *service) GetBook(ctx context.Context, id string) (*Book, error) {
	book, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateBook applies a partial update. The ID itself cannot change.
func (s *service) UpdateBook(ctx context.Context, id string, patch BookPatch) (*Book, error) {
	if patch.ID != nil && *patch.ID != id {
		return nil, fmt.Errorf("%w: _id cannot be changed", ErrInvalidBook)
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no update fields provided", ErrInvalidBook)
	}
	if patch.Band != nil && *patch.Band == "" {
		return nil, fmt.Errorf("%w: band cannot be empty", ErrInvalidBook)
	}

	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(before).Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.record(ctx, id, updateEventType(before, updated), patch)
	return &updated, nil
}

func updateEventType(before, after Book) string {
	switch {
	case before.Status == Available && after.Status == Lent:
		return journal.BookCheckedOut
	case before.Status == Lent && after.Status == Available:
		return journal.BookCheckedIn
	default:
		return journal.BookUpdated
	}
}

// DeleteBook removes a book and returns the deleted document.
func (s *service) DeleteBook(ctx context.Context, id string) (*Book, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.record(ctx, id, journal.BookDeleted, deleted)
	return &deleted, nil
}

// History returns the journal entries recorded for a book.
func (s *service) History(ctx context.Context, id string) ([]journal.Entry, error) {
	entries, err := s.journal.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// record appends to the journal. The store write already happened, so a
// journal failure is logged and not returned.
func (s *service) record(ctx context.Context, bookID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).WithField("book_id", bookID).Error("failed to marshal journal payload")
		return
	}
	if _, err := s.journal.Append(ctx, bookID, eventType, data, nil); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"book_id":    bookID,
			"event_type": eventType,
		}).Error("failed to append journal entry")
	}
}

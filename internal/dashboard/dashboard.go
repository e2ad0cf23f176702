package dashboard

import (
	"context"
	"errors"
	"fmt"

	"lessonlink/internal/inventory"
)

var (
	ErrForbidden  = errors.New("role may not manage books")
	ErrNotVisible = errors.New("book is not visible to this role")
)

// Dashboard is one user's view of the catalog.
type Dashboard struct {
	Session Session
	Catalog *Catalog
	Policy  Policy
	Query   string
	Facets  Facets
}

func New(session Session, catalog *Catalog, policy Policy) *Dashboard {
	return &Dashboard{Session: session, Catalog: catalog, Policy: policy}
}

// Visible is the catalog after role narrowing, search and facets.
func (d *Dashboard) Visible() []inventory.Book {
	return d.Policy.Filter(d.Catalog.Books(), d.Session.Role(), d.Query, d.Facets)
}

func (d *Dashboard) Summary() []BandSummary {
	return d.Policy.Summarize(d.Catalog.Books(), d.Session.Role())
}

func (d *Dashboard) Checkout(ctx context.Context, id, student string) (inventory.Book, error) {
	if err := d.requireVisible(id); err != nil {
		return inventory.Book{}, err
	}
	return d.Catalog.Checkout(ctx, id, student)
}

func (d *Dashboard) Checkin(ctx context.Context, id string) (inventory.Book, error) {
	if err := d.requireVisible(id); err != nil {
		return inventory.Book{}, err
	}
	return d.Catalog.Checkin(ctx, id)
}

func (d *Dashboard) Add(ctx context.Context, book inventory.Book) (inventory.Book, error) {
	if err := d.requireManager(); err != nil {
		return inventory.Book{}, err
	}
	return d.Catalog.Add(ctx, book)
}

func (d *Dashboard) Edit(ctx context.Context, id string, fields EditFields) (inventory.Book, error) {
	if err := d.requireManager(); err != nil {
		return inventory.Book{}, err
	}
	return d.Catalog.Edit(ctx, id, fields)
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.requireManager(); err != nil {
		return err
	}
	return d.Catalog.Delete(ctx, id)
}

func (d *Dashboard) requireManager() error {
	if !d.Policy.CanManageBooks(d.Session.Role()) {
		return fmt.Errorf("%w: %s", ErrForbidden, d.Session.Role())
	}
	return nil
}

// requireVisible passes unknown ids through so the catalog reports them.
func (d *Dashboard) requireVisible(id string) error {
	book, ok := d.Catalog.Book(id)
	if ok && !d.Policy.CanSee(d.Session.Role(), book.Band) {
		return fmt.Errorf("%w: %s", ErrNotVisible, id)
	}
	return nil
}

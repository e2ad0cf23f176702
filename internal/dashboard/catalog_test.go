package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonlink/internal/inventory"
	"lessonlink/internal/logger"
)

var errUnavailable = errors.New("inventory unavailable")

// fakeAPI serves a MemoryStore and can be told to fail writes.
type fakeAPI struct {
	store *inventory.MemoryStore

	mu       sync.Mutex
	failNext bool
	failList bool
	calls    map[string]int

	// seen runs before an update reaches the store.
	seen func()
}

func newFakeAPI(t *testing.T, books ...inventory.Book) *fakeAPI {
	t.Helper()
	api := &fakeAPI{store: inventory.NewMemoryStore(), calls: map[string]int{}}
	for _, b := range books {
		_, err := api.store.Create(context.Background(), b)
		require.NoError(t, err)
	}
	return api
}

func (f *fakeAPI) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.failList && name == "list" {
		return errUnavailable
	}
	if f.failNext && name != "list" {
		f.failNext = false
		return errUnavailable
	}
	return nil
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) ListBooks(ctx context.Context) ([]inventory.Book, error) {
	if err := f.call("list"); err != nil {
		return nil, err
	}
	return f.store.List(ctx)
}

func (f *fakeAPI) AddBook(ctx context.Context, book inventory.Book) (*inventory.Book, error) {
	if err := f.call("add"); err != nil {
		return nil, err
	}
	created, err := f.store.Create(ctx, book)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (f *fakeAPI) UpdateBook(ctx context.Context, id string, patch inventory.BookPatch) (*inventory.Book, error) {
	if f.seen != nil {
		f.seen()
	}
	if err := f.call("update"); err != nil {
		return nil, err
	}
	updated, err := f.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (f *fakeAPI) DeleteBook(ctx context.Context, id string) (*inventory.Book, error) {
	if err := f.call("delete"); err != nil {
		return nil, err
	}
	deleted, err := f.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func newTestCatalog(t *testing.T) (*Catalog, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(t, scenarioBooks()...)
	c := NewCatalog(api, logger.Discard())
	require.NoError(t, c.Refresh(context.Background()))
	return c, api
}

func TestCatalogRefresh(t *testing.T) {
	c, _ := newTestCatalog(t)
	assert.Equal(t, []string{"1", "2"}, ids(c.Books()))
}

func TestCatalogCheckoutConfirmed(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	api.seen = func() {
		b, _ := c.Book("1")
		assert.Equal(t, inventory.Lent, b.Status, "local state should be optimistic")
		m := c.Mutations()
		assert.Equal(t, Pending, m[len(m)-1].State)
	}

	book, err := c.Checkout(ctx, "1", "Jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane", book.StudentName)
	assert.False(t, book.UpdatedAt.IsZero())

	local, ok := c.Book("1")
	require.True(t, ok)
	assert.Equal(t, book, local)

	muts := c.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, KindCheckout, muts[0].Kind)
	assert.Equal(t, Confirmed, muts[0].State)
	assert.Equal(t, inventory.Available, muts[0].Prev.Status)
}

func TestCatalogCheckoutPreconditionMakesNoCall(t *testing.T) {
	c, api := newTestCatalog(t)

	_, err := c.Checkout(context.Background(), "1", "  ")
	assert.ErrorIs(t, err, ErrStudentNameRequired)
	_, err = c.Checkout(context.Background(), "2", "Jane")
	assert.ErrorIs(t, err, ErrAlreadyLent)

	assert.Zero(t, api.count("update"))
	assert.Empty(t, c.Mutations())
}

func TestCatalogRollbackOnFailure(t *testing.T) {
	c, api := newTestCatalog(t)
	before := c.Books()

	api.failNext = true
	_, err := c.Checkout(context.Background(), "1", "Jane")
	require.ErrorIs(t, err, errUnavailable)

	assert.Equal(t, before, c.Books())
	muts := c.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, Failed, muts[0].State)
	assert.ErrorIs(t, muts[0].Err, errUnavailable)
}

func TestCatalogCheckinIdempotent(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	book, err := c.Checkin(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, inventory.Available, book.Status)
	assert.Empty(t, book.StudentName)
	assert.Equal(t, 1, api.count("update"))

	again, err := c.Checkin(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, book, again)
	assert.Equal(t, 1, api.count("update"))
}

func TestCatalogEdit(t *testing.T) {
	c, _ := newTestCatalog(t)

	fields := FieldsOf(scenarioBooks()[1])
	fields.CopyNumber = 4
	book, err := c.Edit(context.Background(), "2", fields)
	require.NoError(t, err)
	assert.Equal(t, 4, book.CopyNumber)
	assert.Equal(t, "Sam", book.StudentName)
}

func TestCatalogAdd(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	created, err := c.Add(ctx, inventory.Book{Module: 3, Band: inventory.BandC, Barcode: "C1", CopyNumber: 1, Status: inventory.Available})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, inventory.DefaultCoverImage, created.CoverImage)
	assert.Len(t, c.Books(), 3)

	api.failNext = true
	_, err = c.Add(ctx, inventory.Book{Module: 3, Band: inventory.BandC, Barcode: "C2", CopyNumber: 2, Status: inventory.Available})
	require.Error(t, err)
	assert.Len(t, c.Books(), 3)

	_, err = c.Add(ctx, inventory.Book{Band: inventory.BandC})
	assert.ErrorIs(t, err, inventory.ErrInvalidBook)
	assert.Equal(t, 2, api.count("add"))
}

func TestCatalogDelete(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Delete(ctx, "1"))
	assert.Equal(t, []string{"2"}, ids(c.Books()))
	assert.Equal(t, 2, api.count("list"), "delete refetches the catalog")

	api.failNext = true
	err := c.Delete(ctx, "2")
	require.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, []string{"2"}, ids(c.Books()))
}

func TestCatalogDeleteUnknown(t *testing.T) {
	c, api := newTestCatalog(t)
	before := c.Books()

	err := c.Delete(context.Background(), "999")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Equal(t, before, c.Books())
	assert.Zero(t, api.count("delete"))
}

func TestCatalogDeleteRemoteNotFound(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	// Deleted elsewhere after the last refresh.
	_, err := api.store.Delete(ctx, "1")
	require.NoError(t, err)

	err = c.Delete(ctx, "1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Equal(t, []string{"1", "2"}, ids(c.Books()))
}

func TestCatalogDeleteSucceedsWhenRefetchFails(t *testing.T) {
	c, api := newTestCatalog(t)
	ctx := context.Background()

	api.failList = true
	require.NoError(t, c.Delete(ctx, "1"))

	assert.Equal(t, []string{"2"}, ids(c.Books()))
	muts := c.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, Confirmed, muts[0].State)
	assert.Equal(t, 1, api.count("delete"))
}

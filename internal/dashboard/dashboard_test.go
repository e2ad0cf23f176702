package dashboard

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonlink/internal/clients"
	"lessonlink/internal/inventory"
	"lessonlink/internal/journal"
	"lessonlink/internal/logger"
)

func newTestDashboard(t *testing.T, username string) (*Dashboard, *fakeAPI) {
	t.Helper()
	session, err := Login(username)
	require.NoError(t, err)
	c, api := newTestCatalog(t)
	return New(session, c, DefaultPolicy()), api
}

func TestLogin(t *testing.T) {
	s, err := Login("coordinator.a")
	require.NoError(t, err)
	assert.Equal(t, RoleBandA, s.Role())

	_, err = Login("nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)

	ctx := WithSession(context.Background(), s)
	got, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = SessionFromContext(context.Background())
	assert.False(t, ok)
}

func TestDashboardVisible(t *testing.T) {
	d, _ := newTestDashboard(t, "coordinator.a")
	assert.Equal(t, []string{"1"}, ids(d.Visible()))

	d, _ = newTestDashboard(t, "admin")
	d.Query = "sam"
	assert.Equal(t, []string{"2"}, ids(d.Visible()))

	d.Query = ""
	d.Facets.Bands.Toggle(inventory.BandA)
	assert.Equal(t, []string{"1"}, ids(d.Visible()))
}

func TestDashboardSummary(t *testing.T) {
	d, _ := newTestDashboard(t, "admin")
	summary := d.Summary()
	require.Len(t, summary, len(inventory.AllBands))
	assert.Equal(t, BandSummary{Band: inventory.BandA, Total: 1, Available: 1}, summary[0])
	assert.Equal(t, BandSummary{Band: inventory.BandB, Total: 1, Lent: 1}, summary[1])
	assert.Equal(t, BandSummary{Band: inventory.BandC}, summary[2])

	d, _ = newTestDashboard(t, "coordinator.b")
	d.Query = "nothing matches"
	assert.Equal(t, []BandSummary{{Band: inventory.BandB, Total: 1, Lent: 1}}, d.Summary())
}

func TestDashboardGating(t *testing.T) {
	d, api := newTestDashboard(t, "coordinator.a")
	ctx := context.Background()

	_, err := d.Add(ctx, inventory.Book{Module: 1, Band: inventory.BandA, Barcode: "X", CopyNumber: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = d.Edit(ctx, "1", FieldsOf(scenarioBooks()[0]))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, d.Delete(ctx, "1"), ErrForbidden)

	_, err = d.Checkin(ctx, "2")
	assert.ErrorIs(t, err, ErrNotVisible)

	book, err := d.Checkout(ctx, "1", "Jane")
	require.NoError(t, err)
	assert.Equal(t, inventory.Lent, book.Status)

	assert.Zero(t, api.count("add"))
	assert.Zero(t, api.count("delete"))
	assert.Equal(t, 1, api.count("update"))
}

func TestDashboardManager(t *testing.T) {
	d, _ := newTestDashboard(t, "admin")
	ctx := context.Background()

	_, err := d.Add(ctx, inventory.Book{Module: 2, Band: inventory.BandF, Barcode: "F1", CopyNumber: 1, Status: inventory.Available})
	require.NoError(t, err)
	require.NoError(t, d.Delete(ctx, "1"))

	assert.Len(t, d.Visible(), 2)

	err = d.Delete(ctx, "999")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Len(t, d.Visible(), 2)
}

func TestDashboardAgainstInventoryServer(t *testing.T) {
	svc := inventory.NewService(inventory.NewMemoryStore(), journal.NewMemory(), logger.Discard())
	srv := httptest.NewServer(inventory.NewHandler(svc, logger.Discard()).Routes())
	defer srv.Close()

	ctx := context.Background()
	for _, b := range scenarioBooks() {
		_, err := svc.AddBook(ctx, b)
		require.NoError(t, err)
	}

	api := clients.NewInventoryClient(srv.URL+"/api", time.Second)
	catalog := NewCatalog(api, logger.Discard())
	require.NoError(t, catalog.Refresh(ctx))

	session, err := Login("admin")
	require.NoError(t, err)
	d := New(session, catalog, DefaultPolicy())

	book, err := d.Checkin(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, book.StudentName)

	book, err = d.Checkout(ctx, "2", "Jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane", book.StudentName)

	err = d.Delete(ctx, "999")
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	stored, err := svc.GetBook(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, inventory.Lent, stored.Status)
	assert.Equal(t, "Jane", stored.StudentName)

	history, err := svc.History(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func bookDoc(id, barcode string, status interface{}, module interface{}) bson.D {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "module", Value: module},
		{Key: "band", Value: "B"},
		{Key: "barcode", Value: barcode},
		{Key: "copyNumber", Value: int32(1)},
		{Key: "status", Value: status},
		{Key: "coverImage", Value: DefaultCoverImage},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id and cover", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := store.Create(context.Background(), newBook("M-1", BandB))
		require.NoError(mt, err)
		assert.NotEmpty(mt, created.ID)
		assert.Equal(mt, DefaultCoverImage, created.CoverImage)
	})

	mt.Run("create duplicate id", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		b := newBook("M-1", BandB)
		b.ID = "dup"
		_, err := store.Create(context.Background(), b)
		assert.ErrorIs(mt, err, ErrInvalidBook)
	})

	mt.Run("list decodes legacy documents", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch,
			bookDoc("1", "M-1", true, int32(1)),
			bookDoc("2", "M-2", "lent", "2"),
		))

		books, err := store.List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, books, 2)
		assert.Equal(mt, Available, books[0].Status)
		assert.Equal(mt, ModuleCreatorDivineGuidance, books[0].Module)
		assert.Equal(mt, Lent, books[1].Status)
		assert.Equal(mt, ModuleRasulullahAimmah, books[1].Module)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch))

		books, err := store.List(context.Background())
		require.NoError(mt, err)
		assert.NotNil(mt, books)
		assert.Empty(mt, books)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch))

		_, err := store.Get(context.Background(), "999")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update applies patch to stored document", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch, bookDoc("1", "M-1", true, int32(1))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}, bson.E{Key: "nModified", Value: int32(1)}),
		)

		lent := Lent
		name := "Hasan"
		updated, err := store.Update(context.Background(), "1", BookPatch{Status: &lent, StudentName: &name})
		require.NoError(mt, err)
		assert.Equal(mt, Lent, updated.Status)
		assert.Equal(mt, "Hasan", updated.StudentName)
		assert.Equal(mt, "M-1", updated.Barcode)
	})

	mt.Run("student without status on available book is dropped", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch, bookDoc("1", "M-1", true, int32(1))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}, bson.E{Key: "nModified", Value: int32(1)}),
		)

		name := "Jane"
		updated, err := store.Update(context.Background(), "1", BookPatch{StudentName: &name})
		require.NoError(mt, err)
		assert.Equal(mt, Available, updated.Status)
		assert.Empty(mt, updated.StudentName)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch))

		lent := Lent
		_, err := store.Update(context.Background(), "999", BookPatch{Status: &lent})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("replace matches nothing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch, bookDoc("1", "M-1", true, int32(1))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
		)

		band := BandC
		_, err := store.Update(context.Background(), "1", BookPatch{Band: &band})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("reads drop a student stored on an available book", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		doc := append(bookDoc("1", "M-1", true, int32(1)), bson.E{Key: "studentName", Value: "Stale"})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch, doc))

		book, err := store.Get(context.Background(), "1")
		require.NoError(mt, err)
		assert.Empty(mt, book.StudentName)
	})

	mt.Run("delete returns removed document", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bookDoc("1", "M-1", true, int32(4))}))

		deleted, err := store.Delete(context.Background(), "1")
		require.NoError(mt, err)
		assert.Equal(mt, "M-1", deleted.Barcode)
		assert.Equal(mt, ModuleWellbeingHereafter, deleted.Module)
	})
}

// internal/inventory/mongo.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// MongoStore keeps books as documents in a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// ConnectMongo dials uri and returns the client together with a store bound
// to database/collection. The caller disconnects the client.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*mongo.Client, *MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, NewMongoStore(client.Database(database).Collection(collection)), nil
}

func (s *MongoStore) Create(ctx context.Context, book Book) (Book, error) {
	book = prepareNew(book, time.Now().UTC())
	if _, err := s.coll.InsertOne(ctx, book); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Book{}, fmt.Errorf("%w: duplicate _id %s", ErrInvalidBook, book.ID)
		}
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cursor.Close(ctx)

	books := []Book{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	for i := range books {
		books[i].Normalize()
	}
	return books, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Book, error) {
	var book Book
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return Book{}, s.wrapLookup(id, "get book", err)
	}
	book.Normalize()
	return book, nil
}

// Update reads the document, applies the patch the same way the other
// stores do and writes the whole document back.
func (s *MongoStore) Update(ctx context.Context, id string, patch BookPatch) (Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return Book{}, err
	}

	book = patch.Apply(book)
	book.UpdatedAt = time.Now().UTC()

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, book)
	if err != nil {
		return Book{}, fmt.Errorf("update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return Book{}, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	return book, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (Book, error) {
	var book Book
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return Book{}, s.wrapLookup(id, "delete book", err)
	}
	book.Normalize()
	return book, nil
}

func (s *MongoStore) wrapLookup(id, op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UnmarshalBSONValue reads modules stored as numbers or numeric strings.
func (m *Module) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bsontype.Int32:
		*m = Module(v.Int32())
	case bsontype.Int64:
		*m = Module(v.Int64())
	case bsontype.Double:
		*m = Module(int(v.Double()))
	case bsontype.String:
		return m.parse(v.StringValue())
	case bsontype.Null, bsontype.Undefined:
		*m = 0
	default:
		return fmt.Errorf("cannot decode %s into module", t)
	}
	return nil
}

// UnmarshalBSONValue reads statuses stored as booleans or as the legacy
// "available"/"lent" strings.
func (s *Status) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bsontype.Boolean:
		*s = Status(v.Boolean())
	case bsontype.String:
		parsed, err := ParseStatus(v.StringValue())
		if err != nil {
			return err
		}
		*s = parsed
	case bsontype.Null, bsontype.Undefined:
		*s = Available
	default:
		return fmt.Errorf("cannot decode %s into status", t)
	}
	return nil
}

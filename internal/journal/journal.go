// Package journal keeps an append-only history of book mutations.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Event types recorded for books.
const (
	BookAdded      = "BookAdded"
	BookUpdated    = "BookUpdated"
	BookCheckedOut = "BookCheckedOut"
	BookCheckedIn  = "BookCheckedIn"
	BookDeleted    = "BookDeleted"
)

var ErrVersionConflict = errors.New("journal: concurrent append for the same book")

// Entry is one recorded mutation of a book.
type Entry struct {
	ID        int64                  `json:"id" db:"id"`
	BookID    string                 `json:"bookId" db:"book_id"`
	EventType string                 `json:"eventType" db:"event_type"`
	Data      json.RawMessage        `json:"data" db:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Version   int                    `json:"version" db:"version"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
}

// Recorder is implemented by the Postgres journal and the in-memory one.
type Recorder interface {
	Append(ctx context.Context, bookID, eventType string, data json.RawMessage, metadata map[string]interface{}) (Entry, error)
	History(ctx context.Context, bookID string) ([]Entry, error)
}

// Journal stores entries in a Postgres table.
type Journal struct {
	db       *sql.DB
	tracer   trace.Tracer
	appended metric.Int64Counter
}

var _ Recorder = (*Journal)(nil)

func New(db *sql.DB) *Journal {
	appended, _ := otel.Meter("lessonlink/journal").Int64Counter(
		"journal.entries.appended",
		metric.WithDescription("Number of journal entries appended"),
	)
	return &Journal{
		db:       db,
		tracer:   otel.Tracer("lessonlink/journal"),
		appended: appended,
	}
}

// EnsureSchema creates the journal table when it does not exist yet.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS book_journal (
			id BIGSERIAL PRIMARY KEY,
			book_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			data JSONB NOT NULL,
			metadata JSONB,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (book_id, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

// Append records an entry with the next version for bookID.
func (j *Journal) Append(ctx context.Context, bookID, eventType string, data json.RawMessage, metadata map[string]interface{}) (Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("event.type", eventType),
		),
	)
	defer span.End()

	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Entry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM book_journal
		WHERE book_id = $1
	`, bookID).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return Entry{}, fmt.Errorf("query current version: %w", err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal metadata: %w", err)
	}

	entry := Entry{
		BookID:    bookID,
		EventType: eventType,
		Data:      data,
		Metadata:  metadata,
		Version:   current + 1,
		CreatedAt: time.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO book_journal (book_id, event_type, data, metadata, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, bookID, eventType, []byte(data), metadataJSON, entry.Version, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return Entry{}, ErrVersionConflict
		}
		span.RecordError(err)
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit transaction: %w", err)
	}

	j.appended.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	span.SetAttributes(attribute.Int("entry.version", entry.Version))
	return entry, nil
}

// History returns every entry for bookID in version order.
func (j *Journal) History(ctx context.Context, bookID string) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.history",
		trace.WithAttributes(attribute.String("book.id", bookID)),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, book_id, event_type, data, metadata, version, created_at
		FROM book_journal
		WHERE book_id = $1
		ORDER BY version ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var data, metadataJSON []byte

		if err := rows.Scan(
			&entry.ID,
			&entry.BookID,
			&entry.EventType,
			&data,
			&metadataJSON,
			&entry.Version,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Data = json.RawMessage(data)
		if len(metadataJSON) > 0 {
			json.Unmarshal(metadataJSON, &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries, nil
}

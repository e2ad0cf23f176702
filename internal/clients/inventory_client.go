// internal/clients/inventory_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"lessonlink/internal/inventory"
	"lessonlink/internal/journal"
)

var ErrNotFound = errors.New("book not found")

// APIError is a non-2xx answer from the inventory API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventory api: %d %s", e.Status, e.Message)
}

// InventoryClient talks to the inventory REST API. Transport failures and
// 5xx answers count against a circuit breaker; client errors do not.
type InventoryClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "inventory-api",
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (c *InventoryClient) ListBooks(ctx context.Context) ([]inventory.Book, error) {
	books := []inventory.Book{}
	if err := c.do(ctx, http.MethodGet, "/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *InventoryClient) AddBook(ctx context.Context, book inventory.Book) (*inventory.Book, error) {
	var created inventory.Book
	if err := c.do(ctx, http.MethodPost, "/books/add-book", book, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *InventoryClient) UpdateBook(ctx context.Context, id string, patch inventory.BookPatch) (*inventory.Book, error) {
	var updated inventory.Book
	if err := c.do(ctx, http.MethodPatch, "/books/update-book/"+url.PathEscape(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *InventoryClient) DeleteBook(ctx context.Context, id string) (*inventory.Book, error) {
	var resp inventory.DeleteResponse
	req := struct {
		ID string `json:"id"`
	}{ID: id}
	if err := c.do(ctx, http.MethodDelete, "/books/delete-book", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Book, nil
}

// History returns the journal entries recorded for a book.
func (c *InventoryClient) History(ctx context.Context, id string) ([]journal.Entry, error) {
	entries := []journal.Entry{}
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id)+"/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *InventoryClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, apiError(resp.StatusCode, data)
		}
		return rawResponse{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return err
	}

	raw := result.(rawResponse)
	switch {
	case raw.status == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, apiError(raw.status, raw.body))
	case raw.status >= http.StatusBadRequest:
		return apiError(raw.status, raw.body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) *APIError {
	var payload inventory.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	return &APIError{Status: status, Message: payload.Error}
}

// internal/inventory/handler.go
package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

type Handler struct {
	service Service
	log     logrus.FieldLogger
	metrics *Metrics
	limiter *rate.Limiter
}

type HandlerOption func(*Handler)

// WithMetrics records request counts and latencies and serves /metrics.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithWriteLimit caps the rate of add, update and delete requests.
func WithWriteLimit(perSecond float64, burst int) HandlerOption {
	return func(h *Handler) { h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewHandler(service Service, log logrus.FieldLogger, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the router for the whole API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", h.handleListBooks)
		r.Get("/{id}", h.handleGetBook)
		r.Get("/{id}/history", h.handleHistory)

		r.Group(func(r chi.Router) {
			r.Use(h.limitWrites)
			r.Post("/add-book", h.handleAddBook)
			r.Delete("/delete-book", h.handleDeleteBook)
			r.Patch("/update-book/{id}", h.handleUpdateBook)
		})
	})
	return r
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var book Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.log.WithField("barcode", book.Barcode).Info("adding book")
	created, err := h.service.AddBook(r.Context(), book)
	if err != nil {
		// Every failure to add is reported as a bad request.
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), bookID(r))
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), bookID(r))
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := bookID(r)

	var patch BookPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.service.UpdateBook(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("Book ID is required"))
		return
	}

	deleted, err := h.service.DeleteBook(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, errors.New("Book not found"))
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Message: "Book deleted successfully", Book: *deleted})
}

// bookID reads the {id} segment. chi matches on the escaped path when one
// exists, so escaped ids such as "a%2Fb" are decoded here.
func bookID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(id); err == nil {
			return unescaped
		}
	}
	return id
}

// DeleteResponse is the body returned by a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
	Book    Book   `json:"book"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidBook):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	entry := h.log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			if h.metrics != nil {
				h.metrics.limited.Inc()
			}
			h.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs every request and feeds the Prometheus instruments.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := otel.Tracer("lessonlink/inventory").Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		if h.metrics != nil {
			h.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			h.metrics.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}

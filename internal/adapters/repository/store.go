// Package repository holds the ratings store backends.
package repository

import (
	"context"
	"errors"
	"io"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/metrics"
)

// Store provides read/write access to the authoritative ratings.
type Store interface {
	// List returns every item in insertion order. It never returns a
	// partial list.
	List(ctx context.Context) ([]model.Item, error)

	// Get re-reads a single item. Returns model.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (model.Item, error)

	// Commit applies all updates or none. A stale ExpectedVersion yields a
	// *model.ConflictError. Each applied item's version grows by one.
	Commit(ctx context.Context, updates ...model.RatingUpdate) ([]model.Item, error)
}

// Seeder inserts items for names not yet present.
type Seeder interface {
	Seed(ctx context.Context, names []string, rating float64) ([]model.Item, error)
}

// Backend is a complete store implementation.
type Backend interface {
	Store
	Seeder
	io.Closer
	Name() string
}

// observe records latency and, on failure, the error kind for one store call.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, time.Since(start))
	if err != nil {
		metrics.RecordStoreError(backend, op, errorKind(err))
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidUpdate):
		return "invalid"
	case errors.Is(err, model.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

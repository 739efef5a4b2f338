package repository

import (
	"context"
	"sync"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
)

// BackendMemoryName labels metrics and logs for MemoryStore.
const BackendMemoryName = "memory"

// MemoryStore keeps items in process memory. Commits apply under one lock.
type MemoryStore struct {
	mu  sync.RWMutex
	t   *table
	cfg settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{t: newTable(), cfg: applyOptions(opts)}
}

// Name returns the backend name.
func (s *MemoryStore) Name() string { return BackendMemoryName }

// List returns all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) (items []model.Item, err error) {
	defer func(start time.Time) { observe(BackendMemoryName, "list", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t.list(), nil
}

// Get returns one item.
func (s *MemoryStore) Get(ctx context.Context, id string) (it model.Item, err error) {
	defer func(start time.Time) { observe(BackendMemoryName, "get", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Item{}, unavailable(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t.get(id)
}

// Commit applies updates atomically.
func (s *MemoryStore) Commit(ctx context.Context, updates ...model.RatingUpdate) (out []model.Item, err error) {
	defer func(start time.Time) { observe(BackendMemoryName, "commit", start, err) }(time.Now())
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.t.check(updates); err != nil {
		return nil, err
	}
	return s.t.apply(updates, s.cfg.now()), nil
}

// Seed inserts names that are not present yet.
func (s *MemoryStore) Seed(ctx context.Context, names []string, rating float64) (added []model.Item, err error) {
	defer func(start time.Time) { observe(BackendMemoryName, "seed", start, err) }(time.Now())
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.seed(names, rating, s.cfg.now(), s.cfg.newID), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Package pairing picks the next two items to compare.
package pairing

import (
	"math/rand"
	"sync"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
)

const defaultMaxAttempts = 8

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithSource sets the random source. Use a fixed source for reproducible draws.
func WithSource(src rand.Source) Option {
	return func(s *Selector) {
		if src != nil {
			s.rng = rand.New(src) //nolint:gosec // selection does not need crypto randomness
		}
	}
}

// WithSeed seeds the random source.
func WithSeed(seed int64) Option {
	return WithSource(rand.NewSource(seed))
}

// WithRecentWindow makes the selector avoid the last n shown pairs.
// n <= 0 disables it.
func WithRecentWindow(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.recent = newRecentPairs(n)
		} else {
			s.recent = nil
		}
	}
}

// WithMaxAttempts bounds redraws when the recent window rejects a pair.
func WithMaxAttempts(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Selector draws uniformly random pairs of distinct items.
// It is safe for concurrent use.
type Selector struct {
	mu          sync.Mutex
	rng         *rand.Rand
	recent      *recentPairs
	maxAttempts int
}

// NewSelector creates a selector seeded from the clock unless overridden.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // see WithSource
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns a pair of distinct items from snap, or false when snap has
// fewer than two items.
func (s *Selector) Next(snap model.Snapshot) (model.Comparison, bool) {
	n := snap.Len()
	if n < 2 {
		return model.Comparison{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var i, j int
	for attempt := 1; ; attempt++ {
		i, j = s.draw(n)
		if s.recent == nil || attempt >= s.maxAttempts {
			break
		}
		if !s.recent.contains(snap.At(i).ID, snap.At(j).ID) {
			break
		}
	}

	a, b := snap.At(i), snap.At(j)
	if s.recent != nil {
		s.recent.add(a.ID, b.ID)
	}
	return model.Comparison{A: a, B: b}, true
}

func (s *Selector) draw(n int) (int, int) {
	i := s.rng.Intn(n)
	j := s.rng.Intn(n)
	for j == i {
		j = s.rng.Intn(n)
	}
	return i, j
}

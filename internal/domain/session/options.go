package session

import (
	"time"

	"github.com/okian/elovote/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithID sets the session id used in logs and by the registry.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSelector sets the pair selector.
func WithSelector(sel PairSelector) Option {
	return func(s *Session) {
		if sel != nil {
			s.selector = sel
		}
	}
}

// WithUpdater sets the rating updater.
func WithUpdater(u RatingUpdater) Option {
	return func(s *Session) {
		if u != nil {
			s.updater = u
		}
	}
}

// WithRetries sets how many times a conflicting vote is recomputed
// against fresh ratings before the conflict is returned.
func WithRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithStoreTimeout bounds each store call. Zero means no extra deadline.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.storeTimeout = d
		}
	}
}

// WithVoteListener registers a callback for every committed vote.
func WithVoteListener(fn VoteListener) Option {
	return func(s *Session) {
		s.listener = fn
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

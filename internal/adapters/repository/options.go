package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/elovote/pkg/logger"
)

type settings struct {
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

func defaultSettings() settings {
	return settings{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s
}

// Option applies a configuration option to any backend.
type Option func(*settings)

// WithClock overrides the timestamp source for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides uuid v4 item ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

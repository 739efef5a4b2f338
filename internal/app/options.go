package service

import (
	"time"

	repository "github.com/okian/elovote/internal/adapters/repository"
	"github.com/okian/elovote/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses an already opened backend. The service closes it on Stop.
func WithStore(b repository.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.store = b
		}
	}
}

// WithStoreConfig selects the backend Start opens when no store was given.
func WithStoreConfig(cfg repository.Config) Option {
	return func(s *Service) {
		s.storeCfg = cfg
	}
}

// WithStoreTimeout bounds every store round trip.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithKFactor sets the Elo K-factor shared by all sessions.
func WithKFactor(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithVoteRetries sets how often a conflicting vote is recomputed.
func WithVoteRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.voteRetries = n
		}
	}
}

// WithRecentPairWindow makes each session avoid its last n pairs.
func WithRecentPairWindow(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.recentWindow = n
		}
	}
}

// WithSessionTTL evicts sessions idle for longer than d.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithMaxSessions caps concurrently registered sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithHistorySize sets how many committed votes are kept.
func WithHistorySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithQueueSize sets the maximum size of the vote record queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of history workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithExport schedules leaderboard exports to path.
func WithExport(schedule, path string) Option {
	return func(s *Service) {
		s.exportSchedule = schedule
		s.exportPath = path
	}
}

// WithSeed inserts names at rating when the service starts.
func WithSeed(names []string, rating float64) Option {
	return func(s *Service) {
		s.seedNames = names
		if rating > 0 {
			s.initialRating = rating
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, used for session idle tracking.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

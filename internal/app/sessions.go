package service

import (
	"context"
	"time"

	pairing "github.com/okian/elovote/internal/domain/pairing"
	"github.com/okian/elovote/internal/domain/session"
	"github.com/okian/elovote/pkg/logger"
	"github.com/okian/elovote/pkg/metrics"
)

const maxJanitorInterval = time.Minute

// StartSession registers a new session and loads its first pair. A session
// whose load failed is still registered, in the Unavailable state, so the
// caller can inspect it.
func (s *Service) StartSession(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	sess := session.New(s.store,
		session.WithLogger(s.logger.Named("session")),
		session.WithSelector(pairing.NewSelector(pairing.WithRecentWindow(s.recentWindow))),
		session.WithUpdater(s.updater),
		session.WithRetries(s.voteRetries),
		session.WithStoreTimeout(s.storeTimeout),
		session.WithVoteListener(s.onVote),
		session.WithClock(s.now),
	)
	s.sessions[sess.ID()] = sess
	active := len(s.sessions)
	s.mu.Unlock()

	metrics.RecordSessionStarted()
	metrics.UpdateSessionsActive(active)

	if err := sess.Start(ctx); err != nil {
		return sess, err
	}
	return sess, nil
}

// Session returns the registered session with id.
func (s *Service) Session(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Vote casts a vote on the session's current pair.
func (s *Service) Vote(ctx context.Context, id string, slot int) (session.Outcome, error) {
	sess, err := s.Session(id)
	if err != nil {
		return session.Outcome{}, err
	}
	return sess.Vote(ctx, slot)
}

// Refresh reloads the session's snapshot and draws a new pair.
func (s *Service) Refresh(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess, sess.Start(ctx)
}

// EndSession removes a session from the registry.
func (s *Service) EndSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	metrics.UpdateSessionsActive(len(s.sessions))
	return nil
}

// janitor evicts idle sessions until stop is closed.
func (s *Service) janitor(stop <-chan struct{}) {
	defer s.wg.Done()

	interval := min(s.sessionTTL/2, maxJanitorInterval)
	if interval <= 0 {
		interval = maxJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.evictIdle(context.Background())
		}
	}
}

// evictIdle drops sessions idle for longer than the TTL. A session with a
// vote in flight is never evicted.
func (s *Service) evictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.State() == session.StateVoting {
			continue
		}
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		metrics.RecordSessionEvicted(evicted)
		metrics.UpdateSessionsActive(active)
		s.logger.Debug(ctx, "idle sessions evicted",
			logger.Int("evicted", evicted),
			logger.Int("active", active),
		)
	}
	return evicted
}

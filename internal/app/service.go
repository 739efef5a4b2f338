// Package service wires the rating store, voting sessions, vote history and
// leaderboard export into the surface the HTTP API and CLI depend on.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/elovote/internal/adapters/export"
	eventqueue "github.com/okian/elovote/internal/adapters/mq/queue"
	workerpool "github.com/okian/elovote/internal/adapters/mq/worker"
	repository "github.com/okian/elovote/internal/adapters/repository"
	elo "github.com/okian/elovote/internal/domain/elo"
	"github.com/okian/elovote/internal/domain/history"
	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/internal/domain/session"
	"github.com/okian/elovote/pkg/logger"
	"github.com/okian/elovote/pkg/metrics"
)

const (
	defaultStoreTimeout = 2 * time.Second
	defaultSessionTTL   = 30 * time.Minute
	defaultMaxSessions  = 10_000
	defaultHistorySize  = 1000
	defaultQueueSize    = 4096
	shutdownTimeout     = 5 * time.Second
)

// Service implements the API dependencies for the voting system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Backend
	ownStore bool
	updater  *elo.Updater
	history  *history.Log
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	exporter *export.Exporter
	logger   logger.Logger
	now      func() time.Time

	// Configuration
	storeCfg       repository.Config
	storeTimeout   time.Duration
	kFactor        float64
	initialRating  float64
	voteRetries    int
	recentWindow   int
	sessionTTL     time.Duration
	maxSessions    int
	historySize    int
	queueSize      int
	workerCount    int
	exportSchedule string
	exportPath     string
	seedNames      []string

	// Sessions
	sessions map[string]*session.Session

	// Lifecycle
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a service with the given options. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		storeTimeout:  defaultStoreTimeout,
		kFactor:       elo.K,
		initialRating: elo.DefaultRating,
		voteRetries:   1,
		sessionTTL:    defaultSessionTTL,
		maxSessions:   defaultMaxSessions,
		historySize:   defaultHistorySize,
		queueSize:     defaultQueueSize,
		workerCount:   max(2, runtime.NumCPU()/2),
		now:           time.Now,
		sessions:      make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, seeds it, and starts history workers, the session
// janitor and the export schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	opened := false
	if s.store == nil {
		b, err := repository.Open(ctx, s.storeCfg, repository.WithLogger(s.logger.Named("repository")))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = b
		s.ownStore = true
		opened = true
	}
	fail := func(err error) error {
		_ = s.shutdownWorkersLocked(ctx)
		s.pool = nil
		if opened {
			_ = s.store.Close()
			s.store = nil
		}
		return err
	}

	if len(s.seedNames) > 0 {
		seedCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		added, err := s.store.Seed(seedCtx, s.seedNames, s.initialRating)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("seed store: %w", err))
		}
		if len(added) > 0 {
			s.logger.Info(ctx, "seeded items", logger.Int("added", len(added)))
		}
	}

	s.updater = elo.NewUpdater(elo.WithKFactor(s.kFactor))
	s.history = history.New(s.historySize)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.history,
		workerpool.WithLogger(s.logger.Named("worker")))
	s.pool.Start(context.WithoutCancel(ctx))

	if s.exportSchedule != "" {
		s.exporter = export.New(s, s.exportPath,
			export.WithLogger(s.logger.Named("export")),
			export.WithTimeout(s.storeTimeout*5))
		if err := s.exporter.Schedule(s.exportSchedule); err != nil {
			return fail(err)
		}
		if err := s.exporter.Start(ctx); err != nil {
			return fail(err)
		}
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.janitor(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.String("backend", s.store.Name()),
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Float64("k_factor", s.kFactor),
		logger.Int("vote_retries", s.voteRetries),
		logger.Duration("session_ttl", s.sessionTTL),
		logger.String("export_schedule", s.exportSchedule),
	)
	return nil
}

// Stop drains the vote history, stops the janitor and exporter, drops all
// sessions and closes the store. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	var errs []error
	if s.exporter != nil {
		if err := s.exporter.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop exporter: %w", err))
		}
		s.exporter = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.shutdownWorkersLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	for id := range s.sessions {
		delete(s.sessions, id)
	}
	metrics.UpdateSessionsActive(0)
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if s.ownStore {
		s.store = nil
	}

	s.logger.Info(ctx, "service stopped", logger.Int64("votes_recorded", s.history.Total()))
	return errors.Join(errs...)
}

func (s *Service) shutdownWorkersLocked(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	return nil
}

// Leaderboard ranks the items from a fresh store read. limit <= 0 returns all.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.Standing, error) {
	store, err := s.liveStore()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	items, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	board := model.NewSnapshot(items).Leaderboard()
	if limit > 0 && limit < len(board) {
		board = board[:limit]
	}
	return board, nil
}

// RecentVotes returns up to n committed votes, newest first.
func (s *Service) RecentVotes(n int) []history.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.history == nil {
		return nil
	}
	return s.history.Recent(n)
}

// Ready reports whether the service is started and its store answers.
func (s *Service) Ready(ctx context.Context) error {
	store, err := s.liveStore()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := store.List(ctx); err != nil {
		return err
	}
	return nil
}

// GetStats returns runtime statistics.
func (s *Service) GetStats(_ context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"kFactor":       s.kFactor,
		"voteRetries":   s.voteRetries,
		"sessions":      len(s.sessions),
		"maxSessions":   s.maxSessions,
	}
	if s.store != nil {
		stats["backend"] = s.store.Name()
	}
	if s.queue != nil {
		stats["queueLength"] = s.queue.Len(context.Background())
	}
	if s.history != nil {
		stats["votesRecorded"] = s.history.Total()
		stats["historyLength"] = s.history.Len()
	}
	return stats
}

func (s *Service) liveStore() (repository.Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// onVote hands a committed vote to the history workers. The vote is already
// durable; a full queue only loses the history entry.
func (s *Service) onVote(ctx context.Context, out session.Outcome) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	rec := history.Record{
		SessionID:    out.SessionID,
		WinnerID:     out.Winner.ID,
		WinnerName:   out.Winner.Name,
		WinnerRating: out.Winner.Rating,
		LoserID:      out.Loser.ID,
		LoserName:    out.Loser.Name,
		LoserRating:  out.Loser.Rating,
		Delta:        out.WinnerDelta,
		Retried:      out.Retried,
		At:           out.At,
	}
	if !q.Enqueue(context.WithoutCancel(ctx), rec) {
		s.logger.Warn(ctx, "vote history dropped", logger.String("session", out.SessionID))
	}
}

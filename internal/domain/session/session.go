// Package session runs one voter's loop: show a pair, take a vote, apply the
// Elo update through the store, show the next pair.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	elo "github.com/okian/elovote/internal/domain/elo"
	model "github.com/okian/elovote/internal/domain/model"
	pairing "github.com/okian/elovote/internal/domain/pairing"
	"github.com/okian/elovote/pkg/logger"
	"github.com/okian/elovote/pkg/metrics"
)

// Store is the part of the ratings store a session needs.
type Store interface {
	List(ctx context.Context) ([]model.Item, error)
	Get(ctx context.Context, id string) (model.Item, error)
	Commit(ctx context.Context, updates ...model.RatingUpdate) ([]model.Item, error)
}

// PairSelector chooses the next comparison.
type PairSelector interface {
	Next(snap model.Snapshot) (model.Comparison, bool)
}

// RatingUpdater computes new ratings for one vote.
type RatingUpdater interface {
	Update(winner, loser float64) elo.Result
}

// Outcome describes a committed vote.
type Outcome struct {
	SessionID   string            `json:"session_id"`
	Winner      model.Item        `json:"winner"`
	Loser       model.Item        `json:"loser"`
	WinnerDelta float64           `json:"winner_delta"`
	LoserDelta  float64           `json:"loser_delta"`
	Retried     bool              `json:"retried"`
	Next        *model.Comparison `json:"next,omitempty"`
	At          time.Time         `json:"at"`
}

// VoteListener is called after each committed vote, outside the session lock.
type VoteListener func(ctx context.Context, out Outcome)

// Session is a single voter's view over the shared store.
// All methods are safe for concurrent use; at most one vote runs at a time.
type Session struct {
	id           string
	store        Store
	selector     PairSelector
	updater      RatingUpdater
	retries      int
	storeTimeout time.Duration
	listener     VoteListener
	logger       logger.Logger
	now          func() time.Time

	mu         sync.Mutex
	state      State
	snap       model.Snapshot
	pair       model.Comparison
	hasPair    bool
	lastActive time.Time
}

// New creates an idle session over store.
func New(store Store, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		store:    store,
		selector: pairing.NewSelector(),
		updater:  elo.NewUpdater(),
		retries:  1,
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	s.lastActive = s.now()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pair returns the current comparison, if any.
func (s *Session) Pair() (model.Comparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.hasPair
}

// Snapshot returns the session's current view of the items.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Leaderboard ranks the session's current snapshot.
func (s *Session) Leaderboard() []model.Standing {
	return s.Snapshot().Leaderboard()
}

// LastActive is the time of the last Start or Vote call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Start loads the items and draws the first pair. On a started session it
// reloads the snapshot. A failed load makes the session Unavailable.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateUnavailable:
		s.mu.Unlock()
		return ErrSessionUnavailable
	case StateLoading, StateVoting:
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateLoading
	s.lastActive = s.now()
	s.mu.Unlock()

	items, err := s.list(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnavailable
		s.hasPair = false
		s.logger.Error(ctx, "load failed", logger.String("session", s.id), logger.Error(err))
		return fmt.Errorf("start session: %w", err)
	}

	s.snap = model.NewSnapshot(items)
	s.nextPairLocked()
	s.state = StateReady
	metrics.UpdateItemsTotal(s.snap.Len())
	s.logger.Debug(ctx, "snapshot loaded",
		logger.String("session", s.id),
		logger.Int("items", s.snap.Len()),
		logger.Bool("has_pair", s.hasPair),
	)
	return nil
}

// Vote records that the item in slot (0 or 1) beat the other one.
func (s *Session) Vote(ctx context.Context, slot int) (Outcome, error) {
	start := s.now()

	s.mu.Lock()
	switch s.state {
	case StateVoting:
		s.mu.Unlock()
		return Outcome{}, ErrVoteInProgress
	case StateUnavailable:
		s.mu.Unlock()
		return Outcome{}, ErrSessionUnavailable
	case StateReady:
	default:
		s.mu.Unlock()
		return Outcome{}, ErrNotReady
	}
	if slot != 0 && slot != 1 {
		s.mu.Unlock()
		metrics.RecordVote(metrics.VoteRejected)
		return Outcome{}, ErrInvalidSlot
	}
	if !s.hasPair {
		s.mu.Unlock()
		metrics.RecordVote(metrics.VoteRejected)
		return Outcome{}, ErrNoPair
	}
	pair := s.pair
	s.state = StateVoting
	s.lastActive = start
	s.mu.Unlock()

	winner, loser, _ := pair.Resolve(slot)
	out, fresh, err := s.apply(ctx, winner, loser)

	s.mu.Lock()
	if err != nil {
		// The vote was not applied; keep the pair, refreshed if we re-read it.
		if len(fresh) > 0 {
			s.snap = s.snap.With(fresh...)
			s.pair = refreshPair(s.pair, fresh)
		}
		s.state = StateReady
		s.mu.Unlock()
		s.recordFailure(ctx, err, winner, loser)
		return Outcome{}, err
	}

	s.snap = s.snap.With(out.Winner, out.Loser)
	s.nextPairLocked()
	if s.hasPair {
		next := s.pair
		out.Next = &next
	}
	s.state = StateReady
	s.mu.Unlock()

	out.SessionID = s.id
	metrics.RecordVote(metrics.VoteCommitted)
	metrics.RecordRatingDelta(out.Winner.Rating - winner.Rating)
	metrics.RecordVoteLatency(s.now().Sub(start))
	s.logger.Debug(ctx, "vote committed",
		logger.String("session", s.id),
		logger.String("winner", out.Winner.ID),
		logger.Float64("winner_rating", out.Winner.Rating),
		logger.String("loser", out.Loser.ID),
		logger.Float64("loser_rating", out.Loser.Rating),
		logger.Bool("retried", out.Retried),
	)
	if s.listener != nil {
		s.listener(ctx, out)
	}
	return out, nil
}

// apply runs the read-compute-commit loop. On failure it returns the items
// it re-read, if any, so the caller can refresh its pair.
func (s *Session) apply(ctx context.Context, winner, loser model.Item) (Outcome, []model.Item, error) {
	var fresh []model.Item
	retried := false
	for attempt := 0; ; attempt++ {
		res := s.updater.Update(winner.Rating, loser.Rating)
		updated, err := s.commit(ctx,
			model.RatingUpdate{ID: winner.ID, Rating: res.Winner, ExpectedVersion: winner.Version},
			model.RatingUpdate{ID: loser.ID, Rating: res.Loser, ExpectedVersion: loser.Version},
		)
		if err == nil {
			return Outcome{
				Winner:      pick(updated, winner.ID, winner, res.Winner),
				Loser:       pick(updated, loser.ID, loser, res.Loser),
				WinnerDelta: res.WinnerDelta,
				LoserDelta:  res.LoserDelta,
				Retried:     retried,
				At:          s.now(),
			}, nil, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			return Outcome{}, fresh, err
		}

		w, l, rerr := s.reread(ctx, winner.ID, loser.ID)
		if rerr != nil {
			// Still a conflict from the caller's point of view.
			return Outcome{}, fresh, err
		}
		fresh = []model.Item{w, l}
		if attempt >= s.retries {
			return Outcome{}, fresh, err
		}
		s.logger.Debug(ctx, "version conflict, recomputing",
			logger.String("session", s.id),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
		metrics.RecordVoteRetry()
		winner, loser = w, l
		retried = true
	}
}

func (s *Session) list(ctx context.Context) ([]model.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.List(ctx)
}

func (s *Session) commit(ctx context.Context, updates ...model.RatingUpdate) ([]model.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Commit(ctx, updates...)
}

func (s *Session) reread(ctx context.Context, winnerID, loserID string) (model.Item, model.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	w, err := s.store.Get(ctx, winnerID)
	if err != nil {
		return model.Item{}, model.Item{}, err
	}
	l, err := s.store.Get(ctx, loserID)
	if err != nil {
		return model.Item{}, model.Item{}, err
	}
	return w, l, nil
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// nextPairLocked draws a pair from the current snapshot. Caller holds mu.
func (s *Session) nextPairLocked() {
	s.pair, s.hasPair = s.selector.Next(s.snap)
	if s.hasPair {
		metrics.RecordPairServed()
	} else {
		metrics.RecordPairEmpty()
	}
}

func (s *Session) recordFailure(ctx context.Context, err error, winner, loser model.Item) {
	result := metrics.VoteUnavailable
	if errors.Is(err, model.ErrConflict) {
		result = metrics.VoteConflict
	}
	metrics.RecordVote(result)
	s.logger.Warn(ctx, "vote not applied",
		logger.String("session", s.id),
		logger.String("winner", winner.ID),
		logger.String("loser", loser.ID),
		logger.String("result", result),
		logger.Error(err),
	)
}

// pick returns the committed item with id, or a best-effort copy of fallback
// when the store did not echo it.
func pick(items []model.Item, id string, fallback model.Item, rating float64) model.Item {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	fallback.Rating = rating
	fallback.Version++
	return fallback
}

func refreshPair(c model.Comparison, fresh []model.Item) model.Comparison {
	for _, it := range fresh {
		switch it.ID {
		case c.A.ID:
			c.A = it
		case c.B.ID:
			c.B = it
		}
	}
	return c
}

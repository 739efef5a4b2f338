package votesim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/elovote/pkg/logger"
)

// Run executes a full simulation: health check, baseline read, concurrent
// voting, and verification of the final board.
func Run(ctx context.Context, config Config) (*Stats, error) {
	cfg := config.withDefaults()
	log := logger.Get().Named("votesim")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{}
	start := time.Now()

	log.Info(ctx, "starting vote simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("voters", cfg.Voters),
		logger.Int("votesPerVoter", cfg.VotesPerVoter),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	before, err := client.Leaderboard(ctx, cfg.BoardLimit)
	if err != nil {
		return stats, fmt.Errorf("read baseline leaderboard: %w", err)
	}
	if len(before) < 2 {
		return stats, ErrNotEnoughItems
	}
	stats.Items = len(before)
	stats.SumBefore = totalRating(before)
	stats.Partial = len(before) >= cfg.BoardLimit

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	var (
		attempted, committed, retried, conflicts, failures atomic.Int64
		wg                                                 sync.WaitGroup
	)
	for i := 0; i < cfg.Voters; i++ {
		wg.Add(1)
		go func(voter int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, uint64(voter)))
			v := voterRun{client: client, log: log, rng: rng, votes: cfg.VotesPerVoter}
			v.run(ctx)
			attempted.Add(v.attempted)
			committed.Add(v.committed)
			retried.Add(v.retried)
			conflicts.Add(v.conflicts)
			failures.Add(v.failures)
		}(i)
	}
	wg.Wait()

	stats.VotesAttempted = int(attempted.Load())
	stats.VotesCommitted = int(committed.Load())
	stats.VotesRetried = int(retried.Load())
	stats.Conflicts = int(conflicts.Load())
	stats.Failures = int(failures.Load())

	after, err := client.Leaderboard(ctx, cfg.BoardLimit)
	if err != nil {
		return stats, fmt.Errorf("read final leaderboard: %w", err)
	}
	stats.SumAfter = totalRating(after)
	stats.Duration = time.Since(start)

	if err := verifySorted(after); err != nil {
		return stats, err
	}
	if stats.Partial {
		log.Warn(ctx, "leaderboard truncated; conservation not checked", logger.Int("limit", cfg.BoardLimit))
	} else if err := verifyConservation(stats); err != nil {
		return stats, err
	}

	log.Info(ctx, "simulation finished",
		logger.Int("attempted", stats.VotesAttempted),
		logger.Int("committed", stats.VotesCommitted),
		logger.Int("retried", stats.VotesRetried),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failures", stats.Failures),
		logger.Float64("drift", stats.Drift()),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// voterRun is one simulated voter with its own session.
type voterRun struct {
	client *Client
	log    logger.Logger
	rng    *rand.Rand
	votes  int

	attempted, committed, retried, conflicts, failures int64
}

func (v *voterRun) run(ctx context.Context) {
	sess, err := v.client.StartSession(ctx)
	if err != nil {
		v.failures++
		v.log.Warn(ctx, "start session failed", logger.Error(err))
		return
	}
	defer func() {
		// The caller's ctx may be done; ending the session is best effort.
		_ = v.client.EndSession(context.WithoutCancel(ctx), sess.ID)
	}()
	if sess.Pair == nil {
		return
	}

	for i := 0; i < v.votes; i++ {
		if ctx.Err() != nil {
			return
		}
		v.attempted++
		res, err := v.client.Vote(ctx, sess.ID, v.rng.IntN(2))
		if err == nil {
			v.committed++
			if res.Retried {
				v.retried++
			}
			if res.Next == nil {
				return
			}
			continue
		}

		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusConflict {
			v.conflicts++
			if _, err := v.client.Refresh(ctx, sess.ID); err != nil {
				v.failures++
				return
			}
			continue
		}
		v.failures++
		v.log.Debug(ctx, "vote failed", logger.String("session", sess.ID), logger.Error(err))
	}
}

// Package votesim drives concurrent simulated voters against a running
// service and checks that no rating update was lost.
package votesim

import (
	"errors"
	"time"
)

// Defaults for a simulation run.
const (
	DefaultBaseURL       = "http://localhost:9080"
	DefaultVoters        = 8
	DefaultVotesPerVoter = 50
	DefaultTimeout       = 10 * time.Second
	DefaultBoardLimit    = 100
)

// Sentinel errors returned by Run.
var (
	ErrUnhealthy      = errors.New("service is not healthy")
	ErrLostUpdate     = errors.New("total rating drifted beyond rounding")
	ErrUnsorted       = errors.New("leaderboard is not sorted")
	ErrNotEnoughItems = errors.New("not enough items to vote on")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Voters        int           // Concurrent sessions
	VotesPerVoter int           // Votes each session attempts
	Timeout       time.Duration // HTTP request timeout
	BoardLimit    int           // Leaderboard rows to read for verification
	Seed          uint64        // Seed for slot choices; 0 picks one
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Voters < 1 {
		out.Voters = DefaultVoters
	}
	if out.VotesPerVoter < 1 {
		out.VotesPerVoter = DefaultVotesPerVoter
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.BoardLimit < 1 {
		out.BoardLimit = DefaultBoardLimit
	}
	return out
}

// Stats holds run statistics.
type Stats struct {
	VotesAttempted int
	VotesCommitted int
	VotesRetried   int
	Conflicts      int
	Failures       int
	Items          int
	SumBefore      float64
	SumAfter       float64
	Partial        bool // the leaderboard hit BoardLimit, conservation not checked
	Duration       time.Duration
}

// Drift is the change in total rating over the run.
func (s *Stats) Drift() float64 { return s.SumAfter - s.SumBefore }

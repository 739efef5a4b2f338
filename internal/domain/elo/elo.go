// Package elo implements the Elo rating update for a single pairwise vote.
package elo

import "math"

// Rating constants.
const (
	// K is the default K-factor: the most points a single vote can move.
	K = 30
	// DefaultRating is assigned to new items.
	DefaultRating = 1500
	// scale is the rating difference at which the favourite is expected to
	// win ten times as often.
	scale = 400
)

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithKFactor overrides K. Non-positive or non-finite values are ignored.
func WithKFactor(k float64) Option {
	return func(u *Updater) {
		if k > 0 && !math.IsInf(k, 0) {
			u.k = k
		}
	}
}

// Result carries the rounded new ratings and the unrounded deltas.
type Result struct {
	Winner      float64
	Loser       float64
	WinnerDelta float64
	LoserDelta  float64
}

// Updater applies the Elo rule with a fixed K-factor. It is stateless and
// safe for concurrent use.
type Updater struct {
	k float64
}

// NewUpdater returns an Updater using K unless overridden.
func NewUpdater(opts ...Option) *Updater {
	u := &Updater{k: K}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// KFactor returns the K used by this updater.
func (u *Updater) KFactor() float64 { return u.k }

// Update returns new ratings after winner beat loser.
func (u *Updater) Update(winner, loser float64) Result {
	// Both deltas come from the loser's expectation so that they cancel exactly.
	eb := ExpectedScore(loser, winner)
	wd := u.k * eb
	ld := -u.k * eb
	return Result{
		Winner:      math.Round(winner + wd),
		Loser:       math.Round(loser + ld),
		WinnerDelta: wd,
		LoserDelta:  ld,
	}
}

// ExpectedScore is the probability that a player rated ra beats one rated rb.
// ExpectedScore(a, b) + ExpectedScore(b, a) is exactly 1.
func ExpectedScore(ra, rb float64) float64 {
	if ra > rb {
		return 1 - ExpectedScore(rb, ra)
	}
	return 1 / (1 + math.Pow(10, (rb-ra)/scale))
}

var defaultUpdater = NewUpdater() //nolint:gochecknoglobals // stateless default

// Update applies the rule with the default K.
func Update(winner, loser float64) Result {
	return defaultUpdater.Update(winner, loser)
}

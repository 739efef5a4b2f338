package votesim

import "fmt"

// totalRating sums the ratings on a board.
func totalRating(board []Standing) float64 {
	sum := 0.0
	for _, st := range board {
		sum += st.Rating
	}
	return sum
}

// verifySorted checks that ratings never increase down the board and that
// ranks are dense.
func verifySorted(board []Standing) error {
	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		if cur.Rating > prev.Rating {
			return fmt.Errorf("%w: row %d (%.0f) above row %d (%.0f)", ErrUnsorted, i, cur.Rating, i-1, prev.Rating)
		}
		want := prev.Rank
		if cur.Rating < prev.Rating {
			want++
		}
		if cur.Rank != want {
			return fmt.Errorf("%w: row %d has rank %d, want %d", ErrUnsorted, i, cur.Rank, want)
		}
	}
	return nil
}

// verifyConservation checks that Elo stayed zero-sum. Each committed vote
// rounds two ratings, so the total may drift by at most one point per vote.
// A lost update shows up as a larger drift.
func verifyConservation(s *Stats) error {
	drift := s.Drift()
	if drift < 0 {
		drift = -drift
	}
	if drift > float64(s.VotesCommitted) {
		return fmt.Errorf("%w: drift %.1f over %d votes", ErrLostUpdate, s.Drift(), s.VotesCommitted)
	}
	return nil
}

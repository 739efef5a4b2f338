package api

import (
	"context"
	"net/http"

	"github.com/okian/elovote/internal/domain/history"
	model "github.com/okian/elovote/internal/domain/model"
)

// LeaderboardDependencies defines the read operations behind the ranking
// and vote history endpoints.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, limit int) ([]model.Standing, error)
	RecentVotes(n int) []history.Record
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	board, err := h.deps.Leaderboard(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if board == nil {
		board = []model.Standing{}
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleGetVotes handles GET /votes?limit=N requests
func (h *LeaderboardHandler) HandleGetVotes(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	votes := h.deps.RecentVotes(n)
	if votes == nil {
		votes = []history.Record{}
	}
	writeJSON(w, http.StatusOK, votes)
}

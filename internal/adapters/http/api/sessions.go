package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/internal/domain/session"
)

const (
	statusNotEnoughItems = "not_enough_items"
	statusPairReady      = "pair_ready"
	maxVoteBody          = 1 << 10
)

// SessionHandler serves the session endpoints.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type sessionView struct {
	ID     string            `json:"id"`
	State  session.State     `json:"state"`
	Status string            `json:"status,omitempty"`
	Pair   *model.Comparison `json:"pair"`
}

type voteRequest struct {
	Slot *int `json:"slot"`
}

type voteResponse struct {
	Winner      model.Item        `json:"winner"`
	Loser       model.Item        `json:"loser"`
	WinnerDelta float64           `json:"winner_delta"`
	LoserDelta  float64           `json:"loser_delta"`
	Retried     bool              `json:"retried"`
	Next        *model.Comparison `json:"next"`
	Status      string            `json:"status"`
}

func viewOf(sess *session.Session) sessionView {
	v := sessionView{ID: sess.ID(), State: sess.State()}
	if c, ok := sess.Pair(); ok {
		v.Pair = &c
		v.Status = statusPairReady
	} else if v.State == session.StateReady {
		v.Status = statusNotEnoughItems
	}
	return v
}

// HandleStart handles POST /sessions.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.StartSession(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Session(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// HandleEnd handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.EndSession(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles POST /sessions/{id}/refresh.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// HandleVote handles POST /sessions/{id}/vote with body {"slot": 0|1}.
func (h *SessionHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxVoteBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrMissingSlot
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Slot == nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingSlot)
		return
	}

	out, err := h.deps.Vote(r.Context(), r.PathValue("id"), *req.Slot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := voteResponse{
		Winner:      out.Winner,
		Loser:       out.Loser,
		WinnerDelta: out.WinnerDelta,
		LoserDelta:  out.LoserDelta,
		Retried:     out.Retried,
		Status:      statusNotEnoughItems,
	}
	if out.Next != nil {
		resp.Next = out.Next
		resp.Status = statusPairReady
	}
	writeJSON(w, http.StatusOK, resp)
}

// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/identity"
	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/realtime"
	"github.com/pollroom/pollroom/store"
	"github.com/pollroom/pollroom/vote"
)

type VotingHandler struct {
	db          *sql.DB
	cfg         cliparse.Config
	hub         *realtime.Hub
	ids         *identity.Resolver
	coordinator *vote.Coordinator
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, hub *realtime.Hub) *VotingHandler {
	return &VotingHandler{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		ids:         identity.NewResolver(cfg.JWTSecret),
		coordinator: vote.NewCoordinator(db),
	}
}

// Vote handles POST /polls/{id}/vote: create, change, or revoke the
// caller's vote depending on their current ledger entry. Every identity
// tier may vote, down to a bare IP.
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !auth.ValidPollID(pollID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid poll ID")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionIndex == nil || *req.OptionIndex < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid option index")
		return
	}

	ident := h.ids.Resolve(r)

	result, err := h.coordinator.Cast(r.Context(), pollID, ident, *req.OptionIndex)
	switch {
	case err == nil:

	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return

	case errors.Is(err, vote.ErrInvalidOption):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Option does not exist")
		return

	case errors.Is(err, vote.ErrConflict):
		middleware.ErrorResponse(w, http.StatusConflict,
			"A vote update conflict occurred. Please retry once.")
		return

	default:
		slog.Error("failed to submit vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}

	slog.Info("vote applied",
		"poll_id", pollID,
		"total_votes", result.Poll.TotalVotes(),
		"revoked", result.CurrentVote == nil,
	)

	// Broadcast only after the commit, and only the shared aggregate:
	// every viewer gets the same payload, personalization stays local.
	h.hub.PollUpdated(pollID, result.Poll)

	middleware.JSONResponse(w, http.StatusOK, models.PollResponse{
		Poll:            result.Poll,
		CurrentUserVote: result.CurrentVote,
	})
}

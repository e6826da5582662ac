// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/identity"
	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/realtime"
	"github.com/pollroom/pollroom/store"
)

// feedLimit caps the public feed at the most recent polls.
const feedLimit = 100

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	hub *realtime.Hub
	ids *identity.Resolver
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config, hub *realtime.Hub) *PollHandler {
	return &PollHandler{db: db, cfg: cfg, hub: hub, ids: identity.NewResolver(cfg.JWTSecret)}
}

// normalizePollInput trims the question and options and validates them:
// non-empty question, at least two case-insensitively distinct options.
func normalizePollInput(question string, options []string) (string, []string, string) {
	question = strings.TrimSpace(question)

	var normalized []string
	for _, opt := range options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}

	if question == "" || len(normalized) < 2 {
		return "", nil, "question and at least 2 options are required"
	}

	distinct := make(map[string]bool)
	for _, opt := range normalized {
		distinct[strings.ToLower(opt)] = true
	}
	if len(distinct) < 2 {
		return "", nil, "please provide at least 2 different options"
	}

	return question, normalized, ""
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question, options, problem := normalizePollInput(req.Question, req.Options)
	if problem != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, problem)
		return
	}

	pollID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate poll ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	poll := models.Poll{
		ID:        pollID,
		Question:  question,
		CreatedAt: time.Now(),
	}
	for _, text := range options {
		poll.Options = append(poll.Options, models.Option{Text: text})
	}

	// Creator is optional: anonymous clients can create polls too.
	ident := h.ids.Resolve(r)
	if userID, ok := ident.UserID(); ok {
		poll.CreatedBy = &userID
	}

	if err := store.CreatePoll(r.Context(), h.db, poll); err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, models.PollResponse{Poll: poll})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !auth.ValidPollID(pollID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid poll ID")
		return
	}

	poll, err := store.GetPoll(r.Context(), h.db, pollID)
	if err == store.ErrNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	ident := h.ids.Resolve(r)
	existing, err := store.FindActive(r.Context(), h.db, pollID, ident)
	if err != nil {
		slog.Error("failed to query current vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.PollResponse{Poll: poll}
	if existing != nil {
		resp.CurrentUserVote = &existing.OptionIndex
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Feed handles GET /polls
func (h *PollHandler) Feed(w http.ResponseWriter, r *http.Request) {
	polls, err := store.ListRecent(r.Context(), h.db, feedLimit)
	if err != nil {
		slog.Error("failed to query feed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	pollIDs := make([]string, len(polls))
	for i, poll := range polls {
		pollIDs[i] = poll.ID
	}

	ident := h.ids.Resolve(r)
	currentVotes, err := store.CurrentVotes(r.Context(), h.db, ident, pollIDs)
	if err != nil {
		slog.Error("failed to annotate feed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	feed := make([]models.FeedItem, 0, len(polls))
	for _, poll := range polls {
		item := models.FeedItem{
			Poll:       poll,
			CreatedAgo: humanize.Time(poll.CreatedAt),
		}
		if idx, ok := currentVotes[poll.ID]; ok {
			v := idx
			item.CurrentUserVote = &v
		}
		feed = append(feed, item)
	}

	middleware.JSONResponse(w, http.StatusOK, feed)
}

// requireOwner loads the poll and enforces that the caller is its
// authenticated creator. Writes the error response itself on failure.
func (h *PollHandler) requireOwner(w http.ResponseWriter, r *http.Request) (models.Poll, string, bool) {
	pollID := r.PathValue("id")
	if !auth.ValidPollID(pollID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid poll ID")
		return models.Poll{}, "", false
	}

	ident := h.ids.Resolve(r)
	userID, ok := ident.UserID()
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return models.Poll{}, "", false
	}

	poll, err := store.GetPoll(r.Context(), h.db, pollID)
	if err == store.ErrNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return models.Poll{}, "", false
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Poll{}, "", false
	}

	if poll.CreatedBy == nil || *poll.CreatedBy != userID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the poll owner can do that")
		return models.Poll{}, "", false
	}

	return poll, userID, true
}

// UpdatePoll handles PUT /polls/{id}. Question-only edits keep counters and
// option indexes stable; changing the option list resets all votes so the
// results stay fair.
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	poll, _, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req models.UpdatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question, options, problem := normalizePollInput(req.Question, req.Options)
	if problem != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, problem)
		return
	}

	optionsChanged := len(options) != len(poll.Options)
	if !optionsChanged {
		for i, text := range options {
			if poll.Options[i].Text != text {
				optionsChanged = true
				break
			}
		}
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if err := store.UpdateQuestion(r.Context(), tx, poll.ID, question); err != nil {
		slog.Error("failed to update question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	if optionsChanged {
		// Counters and ledger always move together.
		if err := store.ReplaceOptions(r.Context(), tx, poll.ID, options); err != nil {
			slog.Error("failed to replace options", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
			return
		}
		if err := store.ClearForPoll(r.Context(), tx, poll.ID); err != nil {
			slog.Error("failed to clear votes", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit poll update", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	updated, err := store.GetPoll(r.Context(), h.db, poll.ID)
	if err != nil {
		slog.Error("failed to reload poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.UpdatePollResponse{
		PollResponse: models.PollResponse{Poll: updated},
		Message:      "Poll updated",
	}
	if optionsChanged {
		resp.Message = "Poll updated, votes reset"
	} else {
		ident := h.ids.Resolve(r)
		if existing, err := store.FindActive(r.Context(), h.db, poll.ID, ident); err == nil && existing != nil {
			resp.CurrentUserVote = &existing.OptionIndex
		}
	}

	slog.Info("poll updated", "poll_id", poll.ID, "votes_reset", optionsChanged)

	h.hub.PollUpdated(poll.ID, updated)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// DeletePoll handles DELETE /polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	poll, _, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	if err := store.DeletePoll(r.Context(), h.db, poll.ID); err != nil {
		slog.Error("failed to delete poll", "error", err, "poll_id", poll.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	slog.Info("poll deleted", "poll_id", poll.ID)

	h.hub.PollDeleted(poll.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Poll deleted"})
}

// Dashboard handles GET /me/dashboard: the caller's created polls and the
// polls they have an active vote on, both newest first.
func (h *PollHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ident := h.ids.Resolve(r)
	userID, ok := ident.UserID()
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	created, err := store.ListByCreator(r.Context(), h.db, userID)
	if err != nil {
		slog.Error("failed to query created polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	votes, err := store.ListByUser(r.Context(), h.db, userID)
	if err != nil {
		slog.Error("failed to query user votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	voted := make([]models.DashboardVotedPoll, 0, len(votes))
	for _, v := range votes {
		poll, err := store.GetPoll(r.Context(), h.db, v.PollID)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			slog.Error("failed to load voted poll", "error", err, "poll_id", v.PollID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		idx := v.OptionIndex
		voted = append(voted, models.DashboardVotedPoll{
			Poll:            poll,
			CurrentUserVote: &idx,
			VotedAt:         v.UpdatedAt,
		})
	}

	if created == nil {
		created = []models.Poll{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.DashboardResponse{
		CreatedPolls: created,
		VotedPolls:   voted,
	})
}

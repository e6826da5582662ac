package models

import "time"

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type UpdatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// OptionIndex is a pointer so a missing field can be told apart from index 0.
type VoteRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

// Domain types

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	CreatedBy *string   `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Option struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// TotalVotes returns the sum of all option counters.
func (p Poll) TotalVotes() int {
	total := 0
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}

// Vote is one voter's current choice on one poll (the ledger entry).
// VoterKey and UserID identify the voter and are never exposed in JSON.
type Vote struct {
	ID          string    `json:"-"`
	PollID      string    `json:"pollId"`
	VoterKey    string    `json:"-"`
	UserID      *string   `json:"-"`
	OptionIndex int       `json:"optionIndex"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Response types

// PollResponse is a poll annotated with the caller's own vote.
// CurrentUserVote is null when the caller has no active vote.
type PollResponse struct {
	Poll
	CurrentUserVote *int `json:"currentUserVote"`
}

type UpdatePollResponse struct {
	PollResponse
	Message string `json:"message"`
}

// FeedItem is a feed entry: the poll, the caller's vote where resolvable,
// and a human-friendly age string.
type FeedItem struct {
	Poll
	CurrentUserVote *int   `json:"currentUserVote"`
	CreatedAgo      string `json:"createdAgo"`
}

type DashboardVotedPoll struct {
	Poll
	CurrentUserVote *int      `json:"currentUserVote"`
	VotedAt         time.Time `json:"votedAt"`
}

type DashboardResponse struct {
	CreatedPolls []Poll               `json:"createdPolls"`
	VotedPolls   []DashboardVotedPoll `json:"votedPolls"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

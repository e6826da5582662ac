// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types and JSON request/response shapes
shared by the PollRoom API.

# Domain Types

  - Poll: a question with an ordered list of options. Option identity is its
    position in the list, so counters line up with indexes across edits.
  - Option: text plus a non-negative vote counter, owned by its poll.
  - Vote: one voter's current choice on one poll. The (poll, voter key) pair
    is unique, which is what makes vote changes and revokes possible.

# Wire Format

Field names are camelCase to match the existing web client:

	{
	  "id": "66f1a2...",
	  "question": "Tabs or spaces?",
	  "options": [{"text": "Tabs", "votes": 3}, {"text": "Spaces", "votes": 5}],
	  "currentUserVote": 1
	}

currentUserVote is per-caller and is stripped from realtime broadcasts;
each client resolves its own vote locally.
*/
package models

// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"log/slog"
)

// Envelope is the wire shape of every server-pushed event.
type Envelope struct {
	Event  string `json:"event"`
	PollID string `json:"pollId"`
	Data   any    `json:"data,omitempty"`
}

const (
	EventPollUpdated = "update_poll"
	EventPollDeleted = "poll_deleted"
)

type membership struct {
	client *Client
	pollID string
	join   bool
}

type outbound struct {
	pollID  string
	payload []byte
}

// Hub owns room membership and fan-out. All state is confined to the Run
// goroutine; handlers talk to it through channels only.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	membership chan membership
	broadcast  chan outbound

	rooms   map[string]map[*Client]bool
	clients map[*Client]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		broadcast:  make(chan outbound, 64),
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]map[string]bool),
	}
}

// Run processes registration, room membership, and broadcasts until the
// process exits. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = make(map[string]bool)

		case client := <-h.unregister:
			h.drop(client)

		case m := <-h.membership:
			if _, ok := h.clients[m.client]; !ok {
				continue
			}
			if m.join {
				if h.rooms[m.pollID] == nil {
					h.rooms[m.pollID] = make(map[*Client]bool)
				}
				h.rooms[m.pollID][m.client] = true
				h.clients[m.client][m.pollID] = true
			} else {
				h.leaveRoom(m.client, m.pollID)
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.pollID] {
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer: drop it rather than block the hub.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if rooms, ok := h.clients[client]; ok {
		for pollID := range rooms {
			h.leaveRoom(client, pollID)
		}
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) leaveRoom(client *Client, pollID string) {
	if room, ok := h.rooms[pollID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, pollID)
		}
	}
	delete(h.clients[client], pollID)
}

// PollUpdated pushes the new aggregate to everyone viewing the poll.
// Fire-and-forget: at-most-once, no acknowledgement, no replay. The payload
// is the shared anonymous aggregate; per-voter state never goes here.
func (h *Hub) PollUpdated(pollID string, poll any) {
	h.emit(Envelope{Event: EventPollUpdated, PollID: pollID, Data: poll})
}

// PollDeleted tells viewers the poll is gone.
func (h *Hub) PollDeleted(pollID string) {
	h.emit(Envelope{Event: EventPollDeleted, PollID: pollID})
}

func (h *Hub) emit(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to marshal realtime event", "event", env.Event, "error", err)
		return
	}

	select {
	case h.broadcast <- outbound{pollID: env.PollID, payload: payload}:
	default:
		// Broadcast queue full; best-effort delivery means we shed load
		// instead of stalling the request that committed the vote.
		slog.Warn("realtime broadcast dropped", "event", env.Event, "poll_id", env.PollID)
	}
}

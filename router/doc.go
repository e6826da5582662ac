// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the API's route table using Go 1.22+ method and
path-value routing on http.ServeMux.

	GET    /health             liveness probe
	POST   /polls              create a poll (auth optional)
	GET    /polls              recent polls feed, vote-annotated
	GET    /polls/{id}         one poll + caller's current vote
	PUT    /polls/{id}         edit (owner only; option changes reset votes)
	DELETE /polls/{id}         delete (owner only)
	POST   /polls/{id}/vote    cast / change / revoke a vote
	GET    /me/dashboard       caller's created and voted polls
	GET    /ws                 websocket upgrade into the realtime hub

All JSON routes are wrapped with the logging middleware; CORS is applied
around the whole mux in main.
*/
package router

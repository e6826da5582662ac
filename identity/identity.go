// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/pollroom/pollroom/auth"
)

// Kind discriminates the identity variants, strongest first.
type Kind int

const (
	KindUser Kind = iota
	KindGuest
	KindIP
)

// Identity is a request-scoped voter identity. It is always one of three
// variants: Authenticated (user ID), Guest (client-persisted token), or
// AnonymousIP (normalized source address). The voter key is derived from
// the variant in exactly one place, VoterKey.
type Identity struct {
	kind   Kind
	userID string
	token  string
	ip     string
}

func Authenticated(userID string) Identity {
	return Identity{kind: KindUser, userID: userID}
}

// WithGuestToken attaches a guest token presented alongside a stronger
// credential. It does not change the voter key; it lets the ledger find
// entries recorded before the voter signed in.
func (id Identity) WithGuestToken(token string) Identity {
	id.token = token
	return id
}

func Guest(token string) Identity {
	return Identity{kind: KindGuest, token: token}
}

func AnonymousIP(ip string) Identity {
	return Identity{kind: KindIP, ip: ip}
}

func (id Identity) Kind() Kind { return id.kind }

// UserID returns the authenticated user ID, if any.
func (id Identity) UserID() (string, bool) {
	if id.kind == KindUser {
		return id.userID, true
	}
	return "", false
}

// GuestKey returns the guest voter key for the request's guest token,
// whether the token is the identity itself or rides along with a bearer
// credential. The ledger uses it to reconcile guest-era entries after the
// voter signs in.
func (id Identity) GuestKey() (string, bool) {
	if id.token == "" {
		return "", false
	}
	return "guest:" + id.token, true
}

// VoterKey returns the canonical uniqueness key for this identity.
// Everything outside this package treats the key as an opaque string.
func (id Identity) VoterKey() string {
	switch id.kind {
	case KindUser:
		return "user:" + id.userID
	case KindGuest:
		return "guest:" + id.token
	default:
		return "ip:" + id.ip
	}
}

// Resolver derives voter identities from incoming HTTP requests.
type Resolver struct {
	jwtSecret string
}

func NewResolver(jwtSecret string) *Resolver {
	return &Resolver{jwtSecret: jwtSecret}
}

// Resolve produces the strongest identity the request supports:
// valid bearer credential > well-formed guest token > source IP.
// Malformed credentials degrade silently to the next tier; Resolve has no
// side effects and never fails. A well-formed guest token accompanying a
// valid bearer credential is kept on the identity as a reconciliation
// alias rather than discarded.
func (r *Resolver) Resolve(req *http.Request) Identity {
	guestToken := req.Header.Get("X-Voter-Token")
	if !auth.ValidGuestToken(guestToken) {
		guestToken = ""
	}

	if userID, ok := r.bearerUserID(req); ok {
		// Keep the guest token around so the voter's guest-era ledger
		// entries still resolve to them after signing in.
		if guestToken != "" {
			return Authenticated(userID).WithGuestToken(guestToken)
		}
		return Authenticated(userID)
	}

	if guestToken != "" {
		return Guest(guestToken)
	}

	return AnonymousIP(ClientIP(req))
}

func (r *Resolver) bearerUserID(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	userID, err := auth.VerifyUserToken(strings.TrimPrefix(header, "Bearer "), r.jwtSecret)
	if err != nil {
		return "", false
	}
	return userID, true
}

// ClientIP extracts the normalized client address: the first hop of
// X-Forwarded-For if present, then X-Real-IP, then RemoteAddr without its
// port. Internal whitespace is stripped so the value is a stable key.
func ClientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return strings.ReplaceAll(ip, " ", "")
		}
	}

	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	addr := req.RemoteAddr
	// Portless addresses (synthetic requests) pass through unchanged.
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.Trim(addr, "[]")
}

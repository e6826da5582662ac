// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pollroom/pollroom/auth"
)

const testSecret = "test-jwt-secret"

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.SignUserToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return "Bearer " + token
}

func TestResolvePrecedence(t *testing.T) {
	resolver := NewResolver(testSecret)
	validBearer := bearerFor(t, "user-7")
	badBearer, _ := auth.SignUserToken("user-7", "wrong-secret", time.Hour)

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		wantKind   Kind
		wantKey    string
	}{
		{
			name:     "bearer wins over guest token",
			headers:  map[string]string{"Authorization": validBearer, "X-Voter-Token": "guest-token-123"},
			wantKind: KindUser,
			wantKey:  "user:user-7",
		},
		{
			name:     "guest token when no bearer",
			headers:  map[string]string{"X-Voter-Token": "guest-token-123"},
			wantKind: KindGuest,
			wantKey:  "guest:guest-token-123",
		},
		{
			name:       "ip fallback when nothing else",
			headers:    nil,
			remoteAddr: "203.0.113.9:54321",
			wantKind:   KindIP,
			wantKey:    "ip:203.0.113.9",
		},
		{
			name:     "invalid bearer degrades to guest",
			headers:  map[string]string{"Authorization": "Bearer " + badBearer, "X-Voter-Token": "guest-token-123"},
			wantKind: KindGuest,
			wantKey:  "guest:guest-token-123",
		},
		{
			name:       "invalid bearer and malformed guest degrade to ip",
			headers:    map[string]string{"Authorization": "Bearer garbage", "X-Voter-Token": "too#short"},
			remoteAddr: "203.0.113.9:54321",
			wantKind:   KindIP,
			wantKey:    "ip:203.0.113.9",
		},
		{
			name:       "guest token too short degrades to ip",
			headers:    map[string]string{"X-Voter-Token": "abc"},
			remoteAddr: "203.0.113.9:54321",
			wantKind:   KindIP,
			wantKey:    "ip:203.0.113.9",
		},
		{
			name:       "non-bearer authorization is ignored",
			headers:    map[string]string{"Authorization": "Basic dXNlcjpwdw=="},
			remoteAddr: "203.0.113.9:54321",
			wantKind:   KindIP,
			wantKey:    "ip:203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/polls/x/vote", nil)
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			ident := resolver.Resolve(req)
			if ident.Kind() != tt.wantKind {
				t.Errorf("Expected kind %v, got %v", tt.wantKind, ident.Kind())
			}
			if ident.VoterKey() != tt.wantKey {
				t.Errorf("Expected key %q, got %q", tt.wantKey, ident.VoterKey())
			}
		})
	}
}

func TestResolveUserID(t *testing.T) {
	resolver := NewResolver(testSecret)

	req := httptest.NewRequest("GET", "/polls", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-7"))

	ident := resolver.Resolve(req)
	userID, ok := ident.UserID()
	if !ok || userID != "user-7" {
		t.Errorf("Expected user-7, got %q (ok=%v)", userID, ok)
	}

	anon := resolver.Resolve(httptest.NewRequest("GET", "/polls", nil))
	if _, ok := anon.UserID(); ok {
		t.Error("Anonymous identity should not carry a user ID")
	}
}

func TestResolveKeepsGuestTokenAlongsideBearer(t *testing.T) {
	resolver := NewResolver(testSecret)

	req := httptest.NewRequest("POST", "/polls/x/vote", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-7"))
	req.Header.Set("X-Voter-Token", "guest-token-123")

	ident := resolver.Resolve(req)
	if ident.Kind() != KindUser || ident.VoterKey() != "user:user-7" {
		t.Fatalf("Bearer should still win: kind %v key %q", ident.Kind(), ident.VoterKey())
	}
	guestKey, ok := ident.GuestKey()
	if !ok || guestKey != "guest:guest-token-123" {
		t.Errorf("Expected guest alias kept, got %q (ok=%v)", guestKey, ok)
	}

	// A malformed token never becomes an alias
	req.Header.Set("X-Voter-Token", "bad!")
	ident = resolver.Resolve(req)
	if _, ok := ident.GuestKey(); ok {
		t.Error("Malformed guest token must not produce an alias")
	}
}

func TestGuestKey(t *testing.T) {
	if _, ok := Authenticated("abc").GuestKey(); ok {
		t.Error("Plain authenticated identity has no guest key")
	}
	if key, ok := Authenticated("abc").WithGuestToken("tok-12345678").GuestKey(); !ok || key != "guest:tok-12345678" {
		t.Errorf("Expected attached alias, got %q (ok=%v)", key, ok)
	}
	if key, ok := Guest("tok-12345678").GuestKey(); !ok || key != "guest:tok-12345678" {
		t.Errorf("Expected guest's own key, got %q (ok=%v)", key, ok)
	}
	if _, ok := AnonymousIP("10.0.0.1").GuestKey(); ok {
		t.Error("IP identity has no guest key")
	}
}

func TestVoterKeyDerivation(t *testing.T) {
	tests := []struct {
		name  string
		ident Identity
		want  string
	}{
		{"authenticated", Authenticated("abc"), "user:abc"},
		{"authenticated with guest alias", Authenticated("abc").WithGuestToken("tok-12345678"), "user:abc"},
		{"guest", Guest("tok-12345678"), "guest:tok-12345678"},
		{"ip", AnonymousIP("10.0.0.1"), "ip:10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ident.VoterKey(); got != tt.want {
				t.Errorf("VoterKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:    "first hop of x-forwarded-for",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.2, 10.0.0.3"},
			want:    "198.51.100.4",
		},
		{
			name:    "whitespace stripped from forwarded value",
			headers: map[string]string{"X-Forwarded-For": "  198.51.100.4  , 10.0.0.2"},
			want:    "198.51.100.4",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			want:    "198.51.100.7",
		},
		{
			name:       "remote addr with port stripped",
			remoteAddr: "203.0.113.9:54321",
			want:       "203.0.113.9",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:8080",
			want:       "2001:db8::1",
		},
		{
			name:       "portless ipv6 remote addr",
			remoteAddr: "2001:db8::1",
			want:       "2001:db8::1",
		},
		{
			name:       "portless ipv4 remote addr",
			remoteAddr: "203.0.113.9",
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

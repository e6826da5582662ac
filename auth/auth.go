// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Guest tokens are opaque client-generated strings persisted in the browser.
var guestTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,120}$`)

// Poll IDs are 24 lowercase hex chars (see GenerateID).
var pollIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidPollID reports whether id has the server-generated poll ID format.
// Malformed IDs are rejected before any storage lookup.
func ValidPollID(id string) bool {
	return pollIDPattern.MatchString(id)
}

// ValidGuestToken reports whether token matches the strict guest-token
// format: alphanumeric/hyphen/underscore, length 8-120.
func ValidGuestToken(token string) bool {
	return guestTokenPattern.MatchString(token)
}

// SignUserToken mints an HS256 bearer token carrying the user ID in the
// "id" claim. Token issuance proper lives in the auth service; this exists
// for tests and local tooling.
func SignUserToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyUserToken validates an HS256 bearer token and returns the user ID
// from its "id" claim.
func VerifyUserToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

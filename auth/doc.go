// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token primitives: bearer token verification, guest
token format checks, and random ID generation.

# Bearer Tokens

User tokens are HS256 JWTs carrying the user ID in the "id" claim:

	userID, err := auth.VerifyUserToken(tokenStr, cfg.JWTSecret)

Verification failures return ErrInvalidToken and nothing else; callers that
want optional authentication treat that as "not signed in" rather than an
error. SignUserToken is the mirror image, used by tests; the production
token issuer is a separate service.

# Guest Tokens

Guest tokens are generated and persisted by the client, never by the server.
ValidGuestToken enforces the accepted format (alphanumeric, hyphen,
underscore, 8-120 chars) so arbitrary header junk cannot become a voter
identity.

# IDs

GenerateID returns crypto/rand hex strings. Polls use GenerateID(12),
giving 24 hex chars, validated by ValidPollID on every request path.
*/
package auth

// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from CLI flags and environment
variables.

Flags take precedence over environment variables:

	-p / PORT                  server port (default 5000)
	-d / DATABASE_URL          database connection string (required)
	-t / DATABASE_TYPE         "sqlite" (default) or "postgres"
	--jwt-secret / JWT_SECRET  bearer token verification secret (required)

The JWT secret must match the one the auth service signs tokens with;
without it every bearer credential degrades to the guest/IP identity tiers.
*/
package cliparse

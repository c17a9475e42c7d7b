// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags, a .env file
and environment variables.

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

# Precedence

For each setting:

 1. CLI flag, if set
 2. environment variable
 3. .env file entry (loaded into the environment without overriding it)
 4. default value, if any

# Settings

	Flag                 Env             Default
	-p, --port           PORT            3318
	-d, --database-url   DATABASE_URL    file:polls.db (sqlite only)
	-t, --database-type  DATABASE_TYPE   sqlite
	--secret-key         SECRET_KEY      (required)
	--admin-key          ADMIN_KEY       (required)
	--seed               SEED_FILE
	--log-level          LOG_LEVEL       info
	--log-format         LOG_FORMAT      text
	--secure-cookies     SECURE_COOKIES  false
	--env-file                           .env

SECRET_KEY signs session cookies and API tokens. ADMIN_KEY guards the admin
API. Prefer environment variables for both; the flags exist for local
development.
*/
package cliparse

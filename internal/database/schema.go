package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
//
// signups: token_hash is unique so a collision fails the insert instead of
// overwriting; (email, used_at, expires_at) serves the pending-per-email
// check.  Rows are never deleted.
//
// rate_limits: one row per (source_address, endpoint).  The primary key is
// the upsert target for the fixed-window counter.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS signups (
		id             CHAR(36)     NOT NULL,
		email          VARCHAR(255) NOT NULL,
		first_name     VARCHAR(100) NOT NULL,
		last_name      VARCHAR(100) NOT NULL,
		company_name   VARCHAR(255) NOT NULL,
		company_size   VARCHAR(50)  NOT NULL,
		phone          VARCHAR(20)  NULL,
		migration_type VARCHAR(20)  NOT NULL DEFAULT 'fresh',
		token_hash     CHAR(64)     NOT NULL,
		source_address VARCHAR(45)  NOT NULL,
		created_at     DATETIME(6)  NOT NULL,
		expires_at     DATETIME(6)  NOT NULL,
		used_at        DATETIME(6)  NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_signups_token_hash (token_hash),
		KEY idx_signups_email_state (email, used_at, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		source_address VARCHAR(45)  NOT NULL,
		endpoint       VARCHAR(100) NOT NULL,
		request_count  INT UNSIGNED NOT NULL DEFAULT 1,
		window_start   DATETIME(6)  NOT NULL,
		PRIMARY KEY (source_address, endpoint),
		KEY idx_rate_limits_window_start (window_start)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate aplica el esquema de forma idempotente al arrancar.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                  uuid PRIMARY KEY,
			email               text NOT NULL UNIQUE,
			password_hash       text NOT NULL DEFAULT '',
			email_verified_at   timestamptz,
			recovery_token_hash text NOT NULL DEFAULT '',
			recovery_expires_at timestamptz,
			confirm_token_hash  text NOT NULL DEFAULT '',
			confirm_expires_at  timestamptz,
			created_at          timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			user_id      uuid PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			attended_ids text[] NOT NULL DEFAULT '{}',
			updated_at   timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

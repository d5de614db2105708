package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS instances (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	gateway_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'disconnected',
	phone_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS instances_gateway_name_idx
	ON instances (gateway_name) WHERE gateway_name <> '';

CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY,
	instance_id UUID NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
	phone_number TEXT NOT NULL,
	body TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'text',
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_instance_created_idx
	ON messages (instance_id, created_at DESC);

CREATE TABLE IF NOT EXISTS webhooks (
	id UUID PRIMARY KEY,
	instance_id UUID NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	events JSONB NOT NULL DEFAULT '[]',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	last_triggered TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS webhooks_instance_idx ON webhooks (instance_id);

CREATE TABLE IF NOT EXISTS api_keys (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	key TEXT NOT NULL UNIQUE,
	permissions JSONB NOT NULL DEFAULT '[]',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	last_used TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	instance_id UUID,
	action TEXT NOT NULL,
	details JSONB,
	ip_address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS activity_logs_user_created_idx
	ON activity_logs (user_id, created_at DESC);
`

// EnsureSchema applies the schema idempotently at startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

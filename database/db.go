package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id BIGSERIAL PRIMARY KEY,
		room_id VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(500),
		creator VARCHAR(255) NOT NULL DEFAULT '',
		member_count INTEGER NOT NULL DEFAULT 0,
		room_created_at TIMESTAMPTZ,
		is_checked BOOLEAN NOT NULL DEFAULT FALSE,
		last_checked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS rooms_creator_idx ON rooms (creator)`,
	`CREATE INDEX IF NOT EXISTS rooms_is_checked_idx ON rooms (is_checked)`,
	`CREATE TABLE IF NOT EXISTS room_check_logs (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		summary TEXT,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		id BIGSERIAL PRIMARY KEY,
		full_name VARCHAR(255),
		email VARCHAR(254),
		phone_number VARCHAR(50),
		matrix_room_id VARCHAR(255),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS subscriber_rooms (
		id BIGSERIAL PRIMARY KEY,
		subscriber_id BIGINT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		platform VARCHAR(20) NOT NULL,
		room_id VARCHAR(255) NOT NULL,
		room_code VARCHAR(50),
		room_name VARCHAR(500),
		last_read_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (subscriber_id, room_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_subscriber_room_code
		ON subscriber_rooms (subscriber_id, room_code) WHERE room_code IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS plans (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		price NUMERIC(10, 2) NOT NULL,
		currency VARCHAR(10) NOT NULL DEFAULT 'IDR',
		billing_period VARCHAR(10) NOT NULL,
		number_of_rooms INTEGER NOT NULL DEFAULT 3,
		daily_summary_quota_per_room INTEGER NOT NULL DEFAULT 3,
		version INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id BIGSERIAL PRIMARY KEY,
		subscriber_id BIGINT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		plan_id BIGINT NOT NULL REFERENCES plans(id) ON DELETE RESTRICT,
		status VARCHAR(20) NOT NULL,
		start_at DATE NOT NULL,
		end_at DATE NOT NULL,
		auto_renew BOOLEAN NOT NULL DEFAULT TRUE,
		canceled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_subscriber_status_idx ON subscriptions (subscriber_id, status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS one_active_subscription_per_user
		ON subscriptions (subscriber_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS conversation_processing_states (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL UNIQUE REFERENCES subscriber_rooms(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'idle',
		llm_context_to_process JSONB,
		last_message_synced_at TIMESTAMPTZ,
		last_summarized_at TIMESTAMPTZ,
		processing_started_at TIMESTAMPTZ,
		failure_reason TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS room_summaries (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL REFERENCES subscriber_rooms(id) ON DELETE CASCADE,
		summary TEXT NOT NULL,
		reply TEXT,
		needs_more_information BOOLEAN NOT NULL DEFAULT FALSE,
		todo_list JSONB NOT NULL DEFAULT '[]'::jsonb,
		message_count INTEGER NOT NULL DEFAULT 0,
		from_timestamp TIMESTAMPTZ,
		to_timestamp TIMESTAMPTZ,
		sent_at TIMESTAMPTZ,
		send_failed_at TIMESTAMPTZ,
		send_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS room_summaries_sent_at_idx ON room_summaries (sent_at)`,
	`CREATE TABLE IF NOT EXISTS room_daily_summary_counts (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL REFERENCES subscriber_rooms(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (room_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT REFERENCES subscriber_rooms(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS todos_status_idx ON todos (status)`,
	`CREATE TABLE IF NOT EXISTS general_settings (
		id BIGINT PRIMARY KEY,
		llm_model VARCHAR(100) NOT NULL DEFAULT 'gpt-4o-mini'
	)`,
	`CREATE TABLE IF NOT EXISTS operators (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

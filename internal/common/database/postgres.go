package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"team-notifier/internal/common/config"

	_ "github.com/lib/pq"
)

// schema holds the tables read by the postgres recipient directory and
// written by the delivery log.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS team_recipients (
		team_name   TEXT NOT NULL,
		member_id   TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (team_name, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notification_deliveries (
		id              BIGSERIAL PRIMARY KEY,
		run_id          TEXT NOT NULL,
		notification_id TEXT NOT NULL,
		team_id         BIGINT NOT NULL,
		event_id        BIGINT NOT NULL,
		reason          TEXT NOT NULL,
		recipient_id    TEXT NOT NULL,
		address         TEXT NOT NULL,
		channel         TEXT NOT NULL,
		status          TEXT NOT NULL,
		provider_id     TEXT,
		error           TEXT,
		sent_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notification_deliveries_run_idx ON notification_deliveries (run_id)`,
}

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// EnsureSchema creates the notifier tables if they do not exist.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

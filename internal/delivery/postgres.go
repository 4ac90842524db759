// Package delivery records what a run sent: a per-recipient delivery log in
// postgres and a run summary in elasticsearch.
package delivery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/models"
)

const insertDelivery = `INSERT INTO notification_deliveries
	(run_id, notification_id, team_id, event_id, reason, recipient_id, address, channel, status, provider_id, error, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PostgresLog appends every delivery of a run in one transaction.
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Record(ctx context.Context, run *models.RunResult) error {
	if len(run.Deliveries) == 0 {
		return nil
	}
	if err := l.record(ctx, run); err != nil {
		return apperrors.NewDeliveryLogFailedError(err)
	}
	return nil
}

func (l *PostgresLog) record(ctx context.Context, run *models.RunResult) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertDelivery)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range run.Deliveries {
		sentAt, perr := time.Parse(time.RFC3339, d.SentAt)
		if perr != nil {
			sentAt = run.FinishedAt
		}
		if _, err = stmt.ExecContext(ctx,
			run.RunID, d.NotificationID, run.TeamID, d.EventID, string(d.Reason),
			d.RecipientID, d.Address, run.Channel, d.Status,
			nullString(d.ProviderID), nullString(d.Error), sentAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert delivery %s/%s: %w", d.NotificationID, d.RecipientID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

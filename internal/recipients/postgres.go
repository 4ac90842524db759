package recipients

import (
	"context"
	"database/sql"
	"fmt"

	"team-notifier/internal/models"
)

const activeRecipientsQuery = `SELECT member_id, name, address FROM team_recipients
WHERE team_name = $1 AND active ORDER BY member_id`

// Postgres lists the active recipients of a team from the team_recipients table.
type Postgres struct {
	db       *sql.DB
	teamName string
}

func NewPostgres(db *sql.DB, teamName string) *Postgres {
	return &Postgres{db: db, teamName: teamName}
}

func (p *Postgres) Recipients(ctx context.Context) ([]models.Recipient, error) {
	rows, err := p.db.QueryContext(ctx, activeRecipientsQuery, p.teamName)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Address); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

// Package source adapts event providers to the notifier's event model.
package source

import (
	"context"

	"team-notifier/internal/models"
)

// EventSource supplies a team's scheduled events and their attendance.
type EventSource interface {
	// ResolveTeamID maps a team name to its id. Unknown names return a
	// TEAM_NOT_FOUND error.
	ResolveTeamID(ctx context.Context, teamName string) (int64, error)
	ListEvents(ctx context.Context, teamID int64) ([]models.Event, error)
	AttendanceList(ctx context.Context, teamID, eventID int64) (*models.AttendanceList, error)
}

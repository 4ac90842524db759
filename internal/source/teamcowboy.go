package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/teamcowboy"
	"team-notifier/internal/models"
)

const (
	tcDateLayout      = "2006-01-02"
	tcTimestampLayout = "2006-01-02 15:04:05"
)

// TeamCowboyAPI is the subset of the Team Cowboy client the source uses.
type TeamCowboyAPI interface {
	Teams(ctx context.Context) ([]teamcowboy.Team, error)
	TeamEvents(ctx context.Context, teamID int64) ([]teamcowboy.Event, error)
	AttendanceList(ctx context.Context, teamID, eventID int64) (*teamcowboy.AttendanceList, error)
}

// TeamCowboy reads events from the Team Cowboy API.
type TeamCowboy struct {
	api    TeamCowboyAPI
	logger logger.Logger
}

func NewTeamCowboy(api TeamCowboyAPI, log logger.Logger) *TeamCowboy {
	return &TeamCowboy{api: api, logger: log}
}

// ResolveTeamID scans the user's teams for an exact name match.
func (s *TeamCowboy) ResolveTeamID(ctx context.Context, teamName string) (int64, error) {
	teams, err := s.api.Teams(ctx)
	if err != nil {
		return 0, classify(err, func(err error) *apperrors.StandardError {
			return apperrors.NewEventFetchFailedError(0, err)
		})
	}
	for _, t := range teams {
		if t.Name == teamName {
			return t.TeamID, nil
		}
	}
	return 0, apperrors.NewTeamNotFoundError(teamName)
}

func (s *TeamCowboy) ListEvents(ctx context.Context, teamID int64) ([]models.Event, error) {
	raw, err := s.api.TeamEvents(ctx, teamID)
	if err != nil {
		return nil, classify(err, func(err error) *apperrors.StandardError {
			return apperrors.NewEventFetchFailedError(teamID, err)
		})
	}

	events := make([]models.Event, 0, len(raw))
	for _, r := range raw {
		e, err := convertEvent(r, teamID)
		if err != nil {
			s.logger.Warn("Skipping malformed event", map[string]interface{}{
				"eventId": r.EventID,
				"error":   err.Error(),
			})
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *TeamCowboy) AttendanceList(ctx context.Context, teamID, eventID int64) (*models.AttendanceList, error) {
	raw, err := s.api.AttendanceList(ctx, teamID, eventID)
	if err != nil {
		return nil, classify(err, func(err error) *apperrors.StandardError {
			return apperrors.NewAttendanceFetchFailedError(eventID, err)
		})
	}
	return convertAttendance(raw), nil
}

// classify maps rejected credentials to SOURCE_AUTH_FAILED and everything
// else through fallback.
func classify(err error, fallback func(error) *apperrors.StandardError) error {
	var apiErr *teamcowboy.APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		return apperrors.NewSourceAuthFailedError(err)
	}
	return fallback(err)
}

func convertEvent(r teamcowboy.Event, teamID int64) (models.Event, error) {
	start, err := time.ParseInLocation(tcDateLayout, r.DateTimeInfo.StartDateLocal, time.UTC)
	if err != nil {
		return models.Event{}, fmt.Errorf("startDateLocal: %w", err)
	}
	created, err := parseTimestamp(r.DateCreatedUTC)
	if err != nil {
		return models.Event{}, fmt.Errorf("dateCreatedUtc: %w", err)
	}
	updated, err := parseTimestamp(r.DateLastUpdatedUTC)
	if err != nil {
		return models.Event{}, fmt.Errorf("dateLastUpdatedUtc: %w", err)
	}
	if updated.IsZero() || updated.Before(created) {
		updated = created
	}

	if r.Team.TeamID != 0 {
		teamID = r.Team.TeamID
	}

	e := models.Event{
		EventID:          r.EventID,
		TeamID:           teamID,
		EventType:        models.ParseEventType(r.EventType),
		Status:           models.EventStatus(r.Status),
		StartDate:        start,
		StartDateDisplay: r.DateTimeInfo.StartDateLocalDisplay,
		StartTimeDisplay: r.DateTimeInfo.StartTimeLocalDisplay,
		CreatedAt:        created,
		UpdatedAt:        updated,
		Title:            r.Title,
		HomeAway:         r.HomeAway,
		Location: models.Location{
			Name:             r.Location.Name,
			AddressMultiLine: r.Location.Address.DisplayMultiLine,
		},
		Comments: r.Comments,
	}
	if r.ShirtColors.Team1 != nil {
		e.ShirtColors.Team1 = r.ShirtColors.Team1.Title
	}
	if r.ShirtColors.Team2 != nil {
		e.ShirtColors.Team2 = r.ShirtColors.Team2.Title
	}
	return e, nil
}

func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(tcTimestampLayout, v, time.UTC)
}

func convertAttendance(raw *teamcowboy.AttendanceList) *models.AttendanceList {
	list := &models.AttendanceList{}
	if raw == nil {
		return list
	}
	for _, c := range raw.CountsByStatus {
		list.CountsByStatus = append(list.CountsByStatus, models.StatusCount{
			Status: c.Status,
			Total:  c.Counts.Total,
			Male:   c.Counts.ByGender.M,
			Female: c.Counts.ByGender.F,
			Other:  c.Counts.ByGender.Other,
		})
	}
	for _, u := range raw.Users {
		list.Users = append(list.Users, models.AttendanceEntry{
			UserID:        strconv.FormatInt(u.User.UserID, 10),
			Status:        u.RSVPInfo.Status,
			StatusDisplay: u.RSVPInfo.StatusDisplay,
		})
	}
	return list
}

package recipients

import (
	"context"
	"strconv"
	"strings"
	"sync"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/teamcowboy"
	"team-notifier/internal/models"
)

// DefaultMemberType is the roster member type that receives notifications.
const DefaultMemberType = "Full-time Team Member"

// RosterAPI is the part of the Team Cowboy client the roster directory needs.
type RosterAPI interface {
	Teams(ctx context.Context) ([]teamcowboy.Team, error)
	Roster(ctx context.Context, teamID int64) ([]teamcowboy.Member, error)
}

type RosterConfig struct {
	TeamName   string
	MemberType string
	// Email addresses members by e-mail instead of phone.
	Email bool
}

// Roster lists the live team roster, keeping members of the configured type
// that have a contact address.
type Roster struct {
	api    RosterAPI
	cfg    RosterConfig
	logger logger.Logger

	mu     sync.Mutex
	teamID int64
}

func NewRoster(api RosterAPI, cfg RosterConfig, log logger.Logger) *Roster {
	if cfg.MemberType == "" {
		cfg.MemberType = DefaultMemberType
	}
	return &Roster{api: api, cfg: cfg, logger: log}
}

func (r *Roster) Recipients(ctx context.Context) ([]models.Recipient, error) {
	teamID, err := r.resolveTeam(ctx)
	if err != nil {
		return nil, err
	}

	members, err := r.api.Roster(ctx, teamID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Recipient, 0, len(members))
	skipped := 0
	for _, m := range members {
		if !strings.EqualFold(m.TeamMeta.TeamMemberType.TitleLongSingular, r.cfg.MemberType) {
			continue
		}
		address := strings.TrimSpace(m.Phone1)
		if r.cfg.Email {
			address = strings.TrimSpace(m.EmailAddress1)
		}
		if address == "" {
			skipped++
			continue
		}
		out = append(out, models.Recipient{
			ID:      strconv.FormatInt(m.UserID, 10),
			Name:    m.FullName,
			Address: address,
		})
	}
	if skipped > 0 {
		r.logger.Debug("Roster members without contact address", map[string]interface{}{
			"teamId":  teamID,
			"skipped": skipped,
		})
	}
	return out, nil
}

func (r *Roster) resolveTeam(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.teamID != 0 {
		return r.teamID, nil
	}

	teams, err := r.api.Teams(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range teams {
		if t.Name == r.cfg.TeamName {
			r.teamID = t.TeamID
			return r.teamID, nil
		}
	}
	return 0, apperrors.NewTeamNotFoundError(r.cfg.TeamName)
}

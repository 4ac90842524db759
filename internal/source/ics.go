package source

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	apperrors "team-notifier/internal/common/errors"
	commonhttp "team-notifier/internal/common/http"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
)

// Custom VEVENT properties understood by the calendar source.
const (
	propEventStatus = "X-EVENT-STATUS"
	propHomeAway    = "X-HOME-AWAY"
	propShirtTeam1  = "X-SHIRT-COLOR-TEAM1"
	propShirtTeam2  = "X-SHIRT-COLOR-TEAM2"
)

const (
	// events that started before now-lookback are history, edited or not
	defaultLookback  = 24 * time.Hour
	defaultLookahead = 90 * 24 * time.Hour
	maxOccurrences   = 500
)

// ICSConfig configures a calendar feed source.
type ICSConfig struct {
	// URL is an http(s) URL or a local file path.
	URL      string
	TeamName string
	TeamID   int64
	Location *time.Location
	// Lookahead bounds recurrence expansion; defaults to 90 days. Single
	// events are listed however far ahead they are.
	Lookahead time.Duration
}

// ICS reads a team's schedule from an iCalendar feed. VEVENT CATEGORIES carry
// the event type; a feed has no RSVP data so attendance is always empty.
type ICS struct {
	cfg    ICSConfig
	http   *commonhttp.Client
	logger logger.Logger
	now    func() time.Time
}

func NewICS(cfg ICSConfig, hc *commonhttp.Client, log logger.Logger) *ICS {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = defaultLookahead
	}
	if hc == nil {
		hc = commonhttp.NewClient(15 * time.Second)
	}
	return &ICS{cfg: cfg, http: hc, logger: log, now: time.Now}
}

func (s *ICS) ResolveTeamID(_ context.Context, teamName string) (int64, error) {
	if !strings.EqualFold(teamName, s.cfg.TeamName) {
		return 0, apperrors.NewTeamNotFoundError(teamName)
	}
	return s.cfg.TeamID, nil
}

func (s *ICS) ListEvents(ctx context.Context, teamID int64) ([]models.Event, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, apperrors.NewEventFetchFailedError(teamID, err)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewEventFetchFailedError(teamID, fmt.Errorf("parse calendar: %w", err))
	}

	now := s.now()
	rangeStart := now.Add(-defaultLookback)
	rangeEnd := now.Add(s.cfg.Lookahead)

	var events []models.Event
	for _, ve := range cal.Events() {
		expanded, err := s.expand(ve, teamID, rangeStart, rangeEnd)
		if err != nil {
			s.logger.Warn("Skipping calendar event", map[string]interface{}{
				"uid":   propValue(ve, ical.ComponentPropertyUniqueId),
				"error": err.Error(),
			})
			continue
		}
		events = append(events, expanded...)
	}
	return events, nil
}

// AttendanceList always returns an empty list.
func (s *ICS) AttendanceList(context.Context, int64, int64) (*models.AttendanceList, error) {
	return &models.AttendanceList{}, nil
}

func (s *ICS) fetch(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(s.cfg.URL, "http://") || strings.HasPrefix(s.cfg.URL, "https://") {
		return s.http.Get(ctx, s.cfg.URL)
	}
	return os.ReadFile(s.cfg.URL)
}

func (s *ICS) expand(ve *ical.VEvent, teamID int64, rangeStart, rangeEnd time.Time) ([]models.Event, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, fmt.Errorf("missing UID")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	allDay := !strings.Contains(propValue(ve, ical.ComponentPropertyDtStart), "T")

	base := s.baseEvent(ve, teamID)

	rawRule := propValue(ve, ical.ComponentPropertyRrule)
	if rawRule == "" {
		if start.Before(rangeStart) {
			return nil, nil
		}
		return []models.Event{s.occurrence(base, uid, start, allDay, false)}, nil
	}

	rule, err := rrule.StrToRRule(rawRule)
	if err != nil {
		return nil, fmt.Errorf("RRULE: %w", err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, start.Location()); err == nil {
				set.ExDate(t)
			}
		}
	}

	times := set.Between(rangeStart.In(start.Location()), rangeEnd.In(start.Location()), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}

	out := make([]models.Event, 0, len(times))
	for _, t := range times {
		out = append(out, s.occurrence(base, uid, t, allDay, true))
	}
	return out, nil
}

// baseEvent maps the VEVENT properties shared by every occurrence.
func (s *ICS) baseEvent(ve *ical.VEvent, teamID int64) models.Event {
	created := propTime(ve, ical.ComponentPropertyCreated)
	if created.IsZero() {
		created = propTime(ve, ical.ComponentPropertyDtstamp)
	}
	updated := propTime(ve, ical.ComponentPropertyLastModified)
	if updated.IsZero() || updated.Before(created) {
		updated = created
	}

	name, address := splitLocation(propValue(ve, ical.ComponentPropertyLocation))

	return models.Event{
		TeamID:    teamID,
		EventType: eventTypeFromCategories(propValue(ve, ical.ComponentPropertyCategories)),
		Status:    eventStatus(ve),
		CreatedAt: created,
		UpdatedAt: updated,
		Title:     propValue(ve, ical.ComponentPropertySummary),
		HomeAway:  propValue(ve, propHomeAway),
		Location:  models.Location{Name: name, AddressMultiLine: address},
		ShirtColors: models.ShirtColors{
			Team1: propValue(ve, propShirtTeam1),
			Team2: propValue(ve, propShirtTeam2),
		},
		Comments: propValue(ve, ical.ComponentPropertyDescription),
	}
}

func (s *ICS) occurrence(base models.Event, uid string, start time.Time, allDay, recurring bool) models.Event {
	e := base
	local := start.In(s.cfg.Location)
	if allDay {
		// all-day dates are floating; keep the calendar date as written
		local = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.cfg.Location)
	}

	key := uid
	if recurring {
		key = uid + "/" + local.Format("20060102")
	}
	e.EventID = eventID(key)
	e.StartDate = models.DateOnly(local)
	e.StartDateDisplay = local.Format("Jan 2")
	if allDay {
		e.StartTimeDisplay = "All Day"
	} else {
		e.StartTimeDisplay = local.Format("3:04 PM")
	}
	return e
}

func eventTypeFromCategories(v string) models.EventType {
	if v == "" {
		return models.EventTypeOther
	}
	first := strings.TrimSpace(strings.Split(v, ",")[0])
	return models.ParseEventType(strings.ToLower(first))
}

func eventStatus(ve *ical.VEvent) models.EventStatus {
	if v := propValue(ve, propEventStatus); v != "" {
		return models.EventStatus(strings.ToLower(v))
	}
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "CANCELLED") {
		return models.StatusCanceled
	}
	return models.StatusNormal
}

// eventID derives a stable positive id from a UID.
func eventID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & (1<<63 - 1))
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func propTime(ve *ical.VEvent, prop ical.ComponentProperty) time.Time {
	v := propValue(ve, prop)
	if v == "" {
		return time.Time{}
	}
	t, err := parseICSTime(v, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, fmt.Errorf("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// splitLocation uses the first line of LOCATION as the venue name and the
// rest as its address.
func splitLocation(v string) (string, string) {
	name, address, _ := strings.Cut(v, "\n")
	return strings.TrimSpace(name), strings.TrimSpace(address)
}

// Package messaging decides which team events warrant a text message, composes
// the message and delivers it to every recipient.
package messaging

import (
	"time"

	"team-notifier/internal/models"
)

// EditStrategy selects how "recently edited" is decided.
type EditStrategy string

const (
	// EditWindowRolling treats an edit as recent when it happened within the
	// edit window before now.
	EditWindowRolling EditStrategy = "rolling"
	// EditWindowSinceLastRun treats an edit as recent when it happened after
	// the previous successful run. Without a recorded run it falls back to
	// the rolling window.
	EditWindowSinceLastRun EditStrategy = "since_last_run"
)

// StaleEditCheck selects when a reminder or announcement carries the
// "event updated" comment.
type StaleEditCheck string

const (
	// StaleEditBeforeWindow comments on edits older than the edit window.
	StaleEditBeforeWindow StaleEditCheck = "before_window"
	// StaleEditWithinWindow comments on edits inside the edit window.
	StaleEditWithinWindow StaleEditCheck = "within_window"
)

// EditedComment is attached to reminders and announcements of edited events.
const EditedComment = "Event updated: check details for changes if any"

const (
	DefaultEditWindow = 24 * time.Hour

	reminderLeadDays     = 2
	announcementLeadDays = 4
)

// Decision is the classifier's verdict for one event.
type Decision struct {
	Reason  models.Reason
	Comment string
}

// Classifier maps an event and the current time to at most one Decision.
// The zero value uses the rolling 24h window, the before-window stale edit
// check and UTC.
type Classifier struct {
	Location       *time.Location
	EditWindow     time.Duration
	EditStrategy   EditStrategy
	StaleEditCheck StaleEditCheck
	LastRunAt      time.Time
}

// WithLastRun returns a copy of c that compares edits against lastRunAt when
// the since-last-run strategy is active.
func (c Classifier) WithLastRun(lastRunAt time.Time) Classifier {
	c.LastRunAt = lastRunAt
	return c
}

// Today returns the calendar date of now in the classifier's time zone.
func (c Classifier) Today(now time.Time) time.Time {
	return models.DateOnly(now.In(c.location()))
}

// Classify returns the notification decision for event at now. The bool is
// false when no notification is due.
func (c Classifier) Classify(event models.Event, now time.Time) (Decision, bool) {
	today := c.Today(now)
	date := models.DateOnly(event.StartDate)

	switch {
	case date.Equal(today):
		switch event.Status {
		case models.StatusPostponed:
			return Decision{Reason: models.ReasonPostponed}, true
		case models.StatusCanceled:
			return Decision{Reason: models.ReasonCanceled}, true
		case models.StatusForfeited:
			return Decision{Reason: models.ReasonForfeited}, true
		}
		return c.updated(event, now)

	case date.Equal(today.AddDate(0, 0, reminderLeadDays)):
		return Decision{Reason: models.ReasonReminder, Comment: c.comment(event, now)}, true

	case date.Equal(today.AddDate(0, 0, announcementLeadDays)):
		if event.EventType == models.EventTypeMeeting || event.EventType == models.EventTypeOther {
			return Decision{}, false
		}
		return Decision{Reason: models.ReasonAnnouncement, Comment: c.comment(event, now)}, true

	default:
		return c.updated(event, now)
	}
}

func (c Classifier) updated(event models.Event, now time.Time) (Decision, bool) {
	if event.Edited() && event.UpdatedAt.After(c.recentSince(now)) {
		return Decision{Reason: models.ReasonUpdated}, true
	}
	return Decision{}, false
}

func (c Classifier) comment(event models.Event, now time.Time) string {
	if !event.Edited() {
		return ""
	}
	boundary := now.Add(-c.window())
	var stale bool
	switch c.StaleEditCheck {
	case StaleEditWithinWindow:
		stale = event.UpdatedAt.After(boundary)
	default:
		stale = event.UpdatedAt.Before(boundary)
	}
	if stale {
		return EditedComment
	}
	return ""
}

// recentSince is the instant after which an edit counts as recent.
func (c Classifier) recentSince(now time.Time) time.Time {
	if c.EditStrategy == EditWindowSinceLastRun && !c.LastRunAt.IsZero() {
		return c.LastRunAt
	}
	return now.Add(-c.window())
}

func (c Classifier) window() time.Duration {
	if c.EditWindow <= 0 {
		return DefaultEditWindow
	}
	return c.EditWindow
}

func (c Classifier) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// internal/models/event.go
package models

import "time"

// EventType is the kind of scheduled team occurrence.
type EventType string

const (
	EventTypeGame     EventType = "game"
	EventTypeBye      EventType = "bye"
	EventTypePractice EventType = "practice"
	EventTypeMeeting  EventType = "meeting"
	EventTypeOther    EventType = "other"

	// EventTypeUnknown marks a tag the scheduling service sent that we do not model.
	EventTypeUnknown EventType = "unknown"
)

// ParseEventType maps a raw event type tag onto the closed set of event types.
func ParseEventType(raw string) EventType {
	switch EventType(raw) {
	case EventTypeGame, EventTypeBye, EventTypePractice, EventTypeMeeting, EventTypeOther:
		return EventType(raw)
	default:
		return EventTypeUnknown
	}
}

// EventStatus is the scheduling status of an event. Values other than the
// constants below are carried through untouched.
type EventStatus string

const (
	StatusNormal    EventStatus = "normal"
	StatusPostponed EventStatus = "postponed"
	StatusCanceled  EventStatus = "canceled"
	StatusForfeited EventStatus = "forfeited"
)

type Location struct {
	Name             string `json:"name"`
	AddressMultiLine string `json:"addressMultiLine"`
}

// ShirtColors holds the optional team colour labels; empty means not set.
type ShirtColors struct {
	Team1 string `json:"team1,omitempty"`
	Team2 string `json:"team2,omitempty"`
}

// Event is a single scheduled team occurrence as supplied by an event source.
type Event struct {
	EventID   int64       `json:"eventId"`
	TeamID    int64       `json:"teamId"`
	EventType EventType   `json:"eventType"`
	Status    EventStatus `json:"status"`

	// StartDate is the local calendar date of the event at midnight UTC.
	StartDate        time.Time `json:"startDate"`
	StartDateDisplay string    `json:"startDateDisplay"`
	StartTimeDisplay string    `json:"startTimeDisplay"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Title       string      `json:"title"`
	HomeAway    string      `json:"homeAway"`
	Location    Location    `json:"location"`
	ShirtColors ShirtColors `json:"shirtColors"`
	Comments    string      `json:"comments,omitempty"`
}

// Edited reports whether the event changed after it was created.
func (e Event) Edited() bool {
	return !e.UpdatedAt.Equal(e.CreatedAt)
}

// DateOnly truncates t to its calendar date in t's own location and returns
// that date at midnight UTC, the representation used for Event.StartDate.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

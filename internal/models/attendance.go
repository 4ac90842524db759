package models

import "strings"

// AttendanceEntry is one team member's RSVP for an event.
type AttendanceEntry struct {
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	StatusDisplay string `json:"statusDisplay"`
}

// StatusCount aggregates RSVPs with the same status, broken down by gender.
type StatusCount struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
	Male   int    `json:"male"`
	Female int    `json:"female"`
	Other  int    `json:"other"`
}

// AttendanceList is the RSVP roster of a single event.
type AttendanceList struct {
	Users          []AttendanceEntry `json:"users"`
	CountsByStatus []StatusCount     `json:"countsByStatus"`
}

// CountFor returns the first aggregate whose status matches (case-insensitive).
func (a *AttendanceList) CountFor(status string) (StatusCount, bool) {
	if a == nil {
		return StatusCount{}, false
	}
	for _, c := range a.CountsByStatus {
		if strings.EqualFold(c.Status, status) {
			return c, true
		}
	}
	return StatusCount{}, false
}

// EntryFor returns the attendance entry of the given user, if present.
func (a *AttendanceList) EntryFor(userID string) (AttendanceEntry, bool) {
	if a == nil {
		return AttendanceEntry{}, false
	}
	for _, u := range a.Users {
		if u.UserID == userID {
			return u, true
		}
	}
	return AttendanceEntry{}, false
}

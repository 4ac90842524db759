package messaging

import (
	"fmt"

	"team-notifier/internal/models"
)

const attendingStatus = "yes"

// Aggregate appends the attending head count to a game notification's body.
// Call it once per notification; applying it again repeats the line.
func Aggregate(n models.Notification, list *models.AttendanceList) string {
	if n.EventType != models.EventTypeGame {
		return n.Body
	}
	count, ok := list.CountFor(attendingStatus)
	if !ok {
		return n.Body
	}
	return n.Body + fmt.Sprintf("\n\nMen [%d] Woman [%d]", count.Male, count.Female)
}

// Personalize appends the recipient's RSVP status (game reminders and
// announcements only) and then the notification comment, if any.
// Call it once per recipient on the output of Aggregate.
func Personalize(text string, n models.Notification, list *models.AttendanceList, recipientID string) string {
	if n.EventType == models.EventTypeGame &&
		(n.Reason == models.ReasonAnnouncement || n.Reason == models.ReasonReminder) {
		if entry, ok := list.EntryFor(recipientID); ok {
			text += "\n\nRSVP Status: " + entry.StatusDisplay
		}
	}
	if n.Comment != "" {
		text += "\n\n" + n.Comment
	}
	return text
}

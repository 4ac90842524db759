package messaging

import (
	"fmt"
	"strings"

	"team-notifier/internal/models"
)

const noShirtColor = "None"

// TemplateBuilder renders the title banner and event section of a message.
// Build is pure: the same event and reason always give the same text.
type TemplateBuilder struct {
	TeamName string
}

// Title returns the banner line for reason. Unknown reasons are used verbatim.
func (b TemplateBuilder) Title(reason models.Reason) string {
	switch reason {
	case models.ReasonUpdated:
		return "Updated event for " + b.TeamName
	case models.ReasonPostponed:
		return "Postponed event for " + b.TeamName
	case models.ReasonCanceled:
		return "Canceled event for " + b.TeamName
	case models.ReasonForfeited:
		return "forfeited event for " + b.TeamName
	case models.ReasonReminder:
		return "Event reminder for " + b.TeamName
	case models.ReasonAnnouncement:
		return "Event announcement for " + b.TeamName
	default:
		return string(reason)
	}
}

// Build returns the title banner, a blank line and the event section.
func (b TemplateBuilder) Build(event models.Event, reason models.Reason) string {
	var sb strings.Builder
	sb.WriteString(b.Title(reason))
	sb.WriteString("\n\n")
	sb.WriteString(eventSection(event))
	return sb.String()
}

func eventSection(e models.Event) string {
	switch e.EventType {
	case models.EventTypeGame:
		return fmt.Sprintf("%s [%s] vs. %s [%s]\n%s\n\n%s",
			e.HomeAway, shirtColor(e.ShirtColors.Team1), e.Title, shirtColor(e.ShirtColors.Team2),
			dateLine(e), locationBlock(e))
	case models.EventTypeBye:
		return "Bye (no game)\n" + dateLine(e)
	case models.EventTypePractice:
		return practiceSection(e)
	case models.EventTypeMeeting:
		// meetings share the practice label
		section := practiceSection(e)
		if e.Comments != "" {
			section += "\n\n" + e.Comments
		}
		return section
	case models.EventTypeOther:
		// comments are not part of the text for "other" events
		return string(e.EventType)
	case models.EventTypeUnknown:
		return ""
	default:
		return ""
	}
}

func practiceSection(e models.Event) string {
	return "Practice (Team)\n" + dateLine(e) + "\n\n" + locationBlock(e)
}

func dateLine(e models.Event) string {
	return fmt.Sprintf("%s %s @ %s", e.StartDate.Weekday(), e.StartDateDisplay, e.StartTimeDisplay)
}

func locationBlock(e models.Event) string {
	return e.Location.Name + "\n" + e.Location.AddressMultiLine
}

func shirtColor(c string) string {
	if c == "" {
		return noShirtColor
	}
	return c
}

package messaging

import (
	"time"

	"team-notifier/internal/models"
)

const teamName = "Trouble Blueing"

// Monday 10 June 2024, 18:00 UTC.
var now = time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return models.DateOnly(now).AddDate(0, 0, offset)
}

func newEvent(eventType models.EventType, offset int) models.Event {
	created := now.Add(-10 * 24 * time.Hour)
	return models.Event{
		EventID:          100 + int64(offset),
		TeamID:           7,
		EventType:        eventType,
		Status:           models.StatusNormal,
		StartDate:        day(offset),
		StartDateDisplay: day(offset).Format("Jan 2"),
		StartTimeDisplay: "7:00 PM",
		CreatedAt:        created,
		UpdatedAt:        created,
		Title:            "Rivals",
		HomeAway:         "Home",
		Location: models.Location{
			Name:             "Field 3",
			AddressMultiLine: "123 Main St\nSeattle, WA",
		},
	}
}

func editedAgo(e models.Event, ago time.Duration) models.Event {
	e.UpdatedAt = now.Add(-ago)
	return e
}

func sequentialIDs() func() string {
	ids := []string{"n1", "n2", "n3", "n4", "n5", "n6"}
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

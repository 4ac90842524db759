package messaging

import (
	"time"

	"github.com/google/uuid"

	"team-notifier/internal/models"
)

// Evaluator turns a batch of events into notifications, preserving order.
type Evaluator struct {
	Classifier Classifier
	Templates  TemplateBuilder
	// NewID generates notification ids; defaults to random UUIDs.
	NewID func() string
}

// Evaluate classifies every event and builds a notification for each one
// that is due. Events without a decision are skipped.
func (ev *Evaluator) Evaluate(events []models.Event, now time.Time) []models.Notification {
	newID := ev.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var out []models.Notification
	for _, event := range events {
		decision, ok := ev.Classifier.Classify(event, now)
		if !ok {
			continue
		}
		out = append(out, models.Notification{
			ID:        newID(),
			Reason:    decision.Reason,
			EventType: event.EventType,
			EventID:   event.EventID,
			TeamID:    event.TeamID,
			Body:      ev.Templates.Build(event, decision.Reason),
			Comment:   decision.Comment,
		})
	}
	return out
}

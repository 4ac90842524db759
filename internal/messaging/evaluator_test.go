package messaging

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-notifier/internal/models"
)

func TestEvaluate_PreservesOrderAndSkips(t *testing.T) {
	ev := &Evaluator{
		Templates: TemplateBuilder{TeamName: teamName},
		NewID:     sequentialIDs(),
	}

	canceled := newEvent(models.EventTypePractice, 0)
	canceled.Status = models.StatusCanceled

	events := []models.Event{
		newEvent(models.EventTypeGame, 4),    // announcement
		newEvent(models.EventTypeBye, 0),     // nothing
		newEvent(models.EventTypeMeeting, 2), // reminder
		newEvent(models.EventTypeOther, 4),   // nothing
		canceled,                             // canceled
	}

	got := ev.Evaluate(events, now)
	require.Len(t, got, 3)

	assert.Equal(t, models.ReasonAnnouncement, got[0].Reason)
	assert.Equal(t, events[0].EventID, got[0].EventID)
	assert.Equal(t, "n1", got[0].ID)

	assert.Equal(t, models.ReasonReminder, got[1].Reason)
	assert.Equal(t, models.EventTypeMeeting, got[1].EventType)

	assert.Equal(t, models.ReasonCanceled, got[2].Reason)
	assert.Equal(t, int64(7), got[2].TeamID)
	assert.Equal(t, ev.Templates.Build(canceled, models.ReasonCanceled), got[2].Body)
}

func TestEvaluate_CommentStaysOffTheBody(t *testing.T) {
	ev := &Evaluator{Templates: TemplateBuilder{TeamName: teamName}}
	e := editedAgo(newEvent(models.EventTypeGame, 2), 72*time.Hour)

	got := ev.Evaluate([]models.Event{e}, now)
	require.Len(t, got, 1)

	assert.Equal(t, EditedComment, got[0].Comment)
	assert.NotContains(t, got[0].Body, EditedComment)
	_, err := uuid.Parse(got[0].ID)
	assert.NoError(t, err)
}

func TestEvaluate_ByeTodayProducesNothing(t *testing.T) {
	ev := &Evaluator{Templates: TemplateBuilder{TeamName: teamName}}
	assert.Empty(t, ev.Evaluate([]models.Event{newEvent(models.EventTypeBye, 0)}, now))
	assert.Empty(t, ev.Evaluate(nil, now))
}

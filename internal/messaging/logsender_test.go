package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
)

func TestLogSender_CapturesDispatch(t *testing.T) {
	sender := NewLogSender(logger.NewTestLogger(t))
	d := &Dispatcher{
		Directory: &fakeDirectory{recipients: []models.Recipient{
			{ID: "2", Address: "+15550000002"},
			{ID: "1", Address: "+15550000001"},
		}},
		Attendance: &fakeAttendance{},
		Sender:     sender,
		Logger:     logger.NewTestLogger(t),
	}

	report, err := d.Dispatch(context.Background(), []models.Notification{
		{ID: "n1", Reason: models.ReasonCanceled, EventType: models.EventTypePractice, Body: "Canceled event for X"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, "log", sender.Channel())

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "+15550000001", msgs[0].To)
	assert.Equal(t, "Canceled event for X", msgs[0].Body)
	assert.Equal(t, "log-1", report.Deliveries[0].ProviderID)
	assert.Equal(t, "log-2", report.Deliveries[1].ProviderID)
}

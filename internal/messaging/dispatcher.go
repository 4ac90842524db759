package messaging

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/multierr"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
)

var errNoAddress = errors.New("recipient has no address")

// Receipt is what a sender returns for an accepted message.
type Receipt struct {
	ProviderID string
}

// Sender delivers one text to one address. The from-address belongs to the
// sender's own configuration.
type Sender interface {
	Send(ctx context.Context, to, body string) (Receipt, error)
	Channel() string
}

// RecipientDirectory lists the people to notify.
type RecipientDirectory interface {
	Recipients(ctx context.Context) ([]models.Recipient, error)
}

// AttendanceFetcher loads the attendance list of one event.
type AttendanceFetcher interface {
	AttendanceList(ctx context.Context, teamID, eventID int64) (*models.AttendanceList, error)
}

// Report lists every delivery attempt of one dispatch.
type Report struct {
	Deliveries []models.Delivery `json:"deliveries"`
	Warnings   []string          `json:"warnings,omitempty"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
}

// Dispatcher sends each notification to every recipient.
type Dispatcher struct {
	Directory  RecipientDirectory
	Attendance AttendanceFetcher
	Sender     Sender
	Logger     logger.Logger
	Now        func() time.Time
}

// Dispatch delivers notifications. A failed send is recorded and the
// remaining recipients are still attempted; the returned error combines every
// send failure. Failing to list recipients aborts the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []models.Notification) (*Report, error) {
	report := &Report{}
	if len(notifications) == 0 {
		return report, nil
	}

	recipients, err := d.Directory.Recipients(ctx)
	if err != nil {
		return report, apperrors.NewRosterFetchFailedError(err)
	}
	recipients = append([]models.Recipient(nil), recipients...)
	sort.SliceStable(recipients, func(i, j int) bool { return recipients[i].ID < recipients[j].ID })

	var errs error
	for _, n := range notifications {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}

		list := d.attendance(ctx, n, report)
		base := Aggregate(n, list)

		for _, r := range recipients {
			text := Personalize(base, n, list, r.ID)
			delivery, err := d.send(ctx, n, r, text)
			report.Deliveries = append(report.Deliveries, delivery)
			if err != nil {
				report.Failed++
				errs = multierr.Append(errs, err)
				continue
			}
			report.Sent++
		}
	}
	return report, errs
}

// attendance fetches the event's attendance list. A failure degrades to an
// empty list so the message still goes out without RSVP details.
func (d *Dispatcher) attendance(ctx context.Context, n models.Notification, report *Report) *models.AttendanceList {
	list, err := d.Attendance.AttendanceList(ctx, n.TeamID, n.EventID)
	if err != nil {
		wrapped := apperrors.NewAttendanceFetchFailedError(n.EventID, err)
		report.Warnings = append(report.Warnings, wrapped.Error())
		d.Logger.Warn("Attendance fetch failed, sending without RSVP details", map[string]interface{}{
			"eventId": n.EventID,
			"teamId":  n.TeamID,
			"error":   err.Error(),
		})
		return &models.AttendanceList{}
	}
	if list == nil {
		return &models.AttendanceList{}
	}
	return list
}

func (d *Dispatcher) send(ctx context.Context, n models.Notification, r models.Recipient, text string) (models.Delivery, error) {
	delivery := models.Delivery{
		NotificationID: n.ID,
		EventID:        n.EventID,
		Reason:         n.Reason,
		RecipientID:    r.ID,
		Address:        r.Address,
		Text:           text,
		SentAt:         d.now().UTC().Format(time.RFC3339),
	}

	var err error
	if r.Address == "" {
		err = apperrors.NewNotificationSendFailedError(d.Sender.Channel(), r.ID, errNoAddress)
	} else {
		var receipt Receipt
		receipt, err = d.Sender.Send(ctx, r.Address, text)
		if err == nil {
			delivery.Status = models.DeliverySent
			delivery.ProviderID = receipt.ProviderID
			d.Logger.Debug("Notification sent", map[string]interface{}{
				"notificationId": n.ID,
				"recipientId":    r.ID,
				"providerId":     receipt.ProviderID,
			})
			return delivery, nil
		}
		err = apperrors.NewNotificationSendFailedError(d.Sender.Channel(), r.ID, err)
	}

	delivery.Status = models.DeliveryFailed
	delivery.Error = err.Error()
	d.Logger.Error("Notification send failed", map[string]interface{}{
		"notificationId": n.ID,
		"eventId":        n.EventID,
		"recipientId":    r.ID,
		"channel":        d.Sender.Channel(),
		"error":          err.Error(),
	})
	return delivery, err
}

func (d *Dispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// internal/models/notification.go
package models

// Reason is why a notification exists.
type Reason string

const (
	ReasonUpdated      Reason = "updated"
	ReasonPostponed    Reason = "postponed"
	ReasonCanceled     Reason = "canceled"
	ReasonForfeited    Reason = "forfeited"
	ReasonReminder     Reason = "reminder"
	ReasonAnnouncement Reason = "announcement"
)

// Notification is a decided, composed message for one event awaiting delivery.
// Body holds the title banner and the event-type section; Comment is merged
// into the outgoing text by the enricher.
type Notification struct {
	ID        string    `json:"id"`
	Reason    Reason    `json:"reason"`
	EventType EventType `json:"eventType"`
	EventID   int64     `json:"eventId"`
	TeamID    int64     `json:"teamId"`
	Body      string    `json:"body"`
	Comment   string    `json:"comment,omitempty"`
}

// Delivery statuses
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Delivery is the outcome of sending one notification to one recipient.
type Delivery struct {
	NotificationID string `json:"notificationId"`
	EventID        int64  `json:"eventId"`
	Reason         Reason `json:"reason"`
	RecipientID    string `json:"recipientId"`
	Address        string `json:"address"`
	Status         string `json:"status"`
	ProviderID     string `json:"providerId,omitempty"`
	Error          string `json:"error,omitempty"`
	Text           string `json:"-"`
	SentAt         string `json:"sentAt"`
}

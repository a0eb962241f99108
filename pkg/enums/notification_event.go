package enums

import "fmt"

// NotificationEvent names the real-time events emitted after a successful
// ledger commit. Delivery is best-effort and never affects the commit.
type NotificationEvent string

const (
	NotificationEventTransferSent      NotificationEvent = "transfer_sent"
	NotificationEventTransferReceived  NotificationEvent = "transfer_received"
	NotificationEventPurchaseCompleted NotificationEvent = "purchase_completed"
	NotificationEventSaleCompleted     NotificationEvent = "sale_completed"
	NotificationEventReversalCompleted NotificationEvent = "reversal_completed"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventTransferSent,
	NotificationEventTransferReceived,
	NotificationEventPurchaseCompleted,
	NotificationEventSaleCompleted,
	NotificationEventReversalCompleted,
}

func (e NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw input into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}

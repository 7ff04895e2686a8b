package repository

import "context"

// Notification types sent by the engine
const (
	NotifyRescheduleOptions  = "reschedule_options"
	NotifyRescheduleSelected = "reschedule_selected"
	NotifyRescheduleAccepted = "reschedule_accepted"
	NotifyRescheduleRejected = "reschedule_rejected"
	NotifyFlightCancelled    = "flight_cancelled"
)

// Notifier delivers a notification to a recipient. Delivery is
// best-effort; failures are logged by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, recipientID, notifType string, payload map[string]interface{}) error
}

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tablebook/internal/domain/customer"
	"tablebook/internal/domain/reservation"
)

// NotificationSink delivers a text message to a phone number. The SMS/MMS
// gateway behind it is entirely external and replaceable.
type NotificationSink interface {
	SendText(ctx context.Context, recipientPhone, message string) error
}

// ReservationMessage renders the customer-facing text for a reservation
// change, e.g. "Your reservation on Saturday, 5 September 2026 at 19:00 for
// 4 persons is CONFIRMED".
func ReservationMessage(when time.Time, guests int, status reservation.Status) string {
	return fmt.Sprintf("Your reservation on %s, %d %s %d at %02d:%02d for %d persons is %s",
		when.Weekday(), when.Day(), when.Month(), when.Year(), when.Hour(), when.Minute(), guests, status)
}

// Notifier sends reservation notifications best-effort: delivery runs on its
// own goroutine after the booking transaction, and a failure is logged, never
// surfaced to the booking caller.
type Notifier struct {
	Sink   NotificationSink
	Logger *slog.Logger
}

// ReservationChanged snapshots the message synchronously and fires the send
// in the background. Callers pass a context detached from the request
// (context.WithoutCancel) so an ended request does not abort delivery.
func (n Notifier) ReservationChanged(ctx context.Context, cust *customer.Customer, r *reservation.Reservation) {
	if n.Sink == nil || cust == nil || r == nil {
		return
	}
	id := r.ID
	phone := cust.Phone
	message := ReservationMessage(r.When, r.Guests, r.Status)
	go func() {
		if err := n.Sink.SendText(ctx, phone, message); err != nil && n.Logger != nil {
			n.Logger.Error("notification send failed", "reservation_id", id, "error", err)
		}
	}()
}

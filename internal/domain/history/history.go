package history

import (
	"context"
	"time"

	"tablebook/internal/domain/customer"
	"tablebook/internal/domain/reservation"
	"tablebook/internal/domain/venue"
)

// Record is one immutable audit entry: the reservation's time, party size
// and resulting status at the moment of a transition. Seq is assigned by the
// store and breaks ties between records written in the same instant, so the
// causal order of transitions survives coarse clocks.
type Record struct {
	ID            string
	ReservationID reservation.ReservationID
	CustomerID    customer.CustomerID
	VenueID       venue.VenueID
	When          time.Time
	Guests        int
	Status        reservation.Status
	RecordedAt    time.Time
	Seq           int64
}

// Store is append-only. Entries are never rewritten or removed, even after
// the reservation they describe is deleted.
type Store interface {
	Append(ctx context.Context, rec Record) (Record, error)
	ByReservation(ctx context.Context, id reservation.ReservationID) ([]Record, error)
}

// Snapshot captures a reservation's state for the audit trail.
func Snapshot(r *reservation.Reservation, recordedAt time.Time) Record {
	return Record{
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		VenueID:       r.VenueID,
		When:          r.When,
		Guests:        r.Guests,
		Status:        r.Status,
		RecordedAt:    recordedAt.UTC(),
	}
}

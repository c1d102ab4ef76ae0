package reservation

import (
	"context"
	"errors"
	"time"

	"tablebook/internal/domain/customer"
	"tablebook/internal/domain/shared/events"
	"tablebook/internal/domain/venue"
)

var (
	ErrInvalidGuests       = errors.New("reservation: guests count must be positive")
	ErrInvalidState        = errors.New("reservation: invalid state transition")
	ErrStillUpcoming       = errors.New("reservation: requested time has not passed yet")
	ErrReservationNotFound = errors.New("reservation: not found")
)

type ReservationID string

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	// StatusDeleted is a logical marker written to the audit trail right
	// before the row is physically removed.
	StatusDeleted Status = "DELETED"
)

// Reservation is a customer's booked slot at a venue. Its identity is fixed
// on creation; time, guests and status change only through the guarded
// transitions below.
type Reservation struct {
	ID         ReservationID
	CustomerID customer.CustomerID
	VenueID    venue.VenueID
	When       time.Time
	Guests     int
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

// Repository persists reservations. ConfirmedGuestsBetween pushes the
// capacity-window filter down to the store so the engine never loads a
// venue's full booking list for one admission check. Bounds are exclusive;
// exclude skips one reservation (the one being rescheduled).
type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id ReservationID) error
	List(ctx context.Context) ([]*Reservation, error)
	ConfirmedGuestsBetween(ctx context.Context, venueID venue.VenueID, from, to time.Time, exclude ReservationID) (int, error)
}

type CreateParams struct {
	ID         ReservationID
	CustomerID customer.CustomerID
	VenueID    venue.VenueID
	When       time.Time
	Guests     int
	CreatedAt  time.Time
}

// NewReservation admits a slot that already passed the availability rules.
// The initial status is CONFIRMED.
func NewReservation(params CreateParams) (*Reservation, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.CustomerID == "" {
		return nil, errors.New("reservation: customer id required")
	}
	if params.VenueID == "" {
		return nil, errors.New("reservation: venue id required")
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:         params.ID,
		CustomerID: params.CustomerID,
		VenueID:    params.VenueID,
		When:       params.When,
		Guests:     params.Guests,
		Status:     StatusConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.Record(ReservationConfirmed{ReservationID: r.ID, VenueID: r.VenueID, CustomerID: r.CustomerID, When: r.When, Guests: r.Guests, At: now})
	return r, nil
}

// Reschedule moves a confirmed reservation to a new time and party size.
// The status stays CONFIRMED; callers re-run the availability rules first.
func (r *Reservation) Reschedule(when time.Time, guests int, now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if guests <= 0 {
		return ErrInvalidGuests
	}
	r.When = when
	r.Guests = guests
	r.UpdatedAt = now.UTC()
	r.Record(ReservationModified{ReservationID: r.ID, VenueID: r.VenueID, When: when, Guests: guests, At: r.UpdatedAt})
	return nil
}

// Complete marks a visit as having happened. Only allowed once the booked
// time is no longer in the future.
func (r *Reservation) Complete(now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if r.When.After(now) {
		return ErrStillUpcoming
	}
	r.Status = StatusCompleted
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCompleted{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Cancel(now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidState
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

// MarkDeleted flags a terminal reservation for removal. Confirmed
// reservations must be cancelled or completed first.
func (r *Reservation) MarkDeleted(now time.Time) error {
	if r.Status != StatusCompleted && r.Status != StatusCancelled {
		return ErrInvalidState
	}
	r.Status = StatusDeleted
	r.UpdatedAt = now.UTC()
	r.Record(ReservationDeleted{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

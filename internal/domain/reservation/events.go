package reservation

import (
	"time"

	"tablebook/internal/domain/customer"
	"tablebook/internal/domain/venue"
)

type ReservationConfirmed struct {
	ReservationID ReservationID
	VenueID       venue.VenueID
	CustomerID    customer.CustomerID
	When          time.Time
	Guests        int
	At            time.Time
}

func (e ReservationConfirmed) EventName() string     { return "reservation.confirmed" }
func (e ReservationConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationModified struct {
	ReservationID ReservationID
	VenueID       venue.VenueID
	When          time.Time
	Guests        int
	At            time.Time
}

func (e ReservationModified) EventName() string     { return "reservation.modified" }
func (e ReservationModified) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationModified) OccurredAt() time.Time { return e.At }

type ReservationCompleted struct {
	ReservationID ReservationID
	At            time.Time
}

func (e ReservationCompleted) EventName() string     { return "reservation.completed" }
func (e ReservationCompleted) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCompleted) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID
	At            time.Time
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type ReservationDeleted struct {
	ReservationID ReservationID
	At            time.Time
}

func (e ReservationDeleted) EventName() string     { return "reservation.deleted" }
func (e ReservationDeleted) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationDeleted) OccurredAt() time.Time { return e.At }

package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tablebook/internal/app/commands"
	"tablebook/internal/app/dto"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/notify"
	"tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	domainavailability "tablebook/internal/domain/availability"
	domaincustomer "tablebook/internal/domain/customer"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

const createReservationKey = "reservation.create"

type CreateReservationCommand struct {
	CommandID       string
	CustomerID      string
	VenueID         string
	When            time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c CreateReservationCommand) Key() string { return createReservationKey }

func (c CreateReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateReservationCommand) ResultPrototype() any { return &dto.ReservationView{} }

func (c CreateReservationCommand) Validate() error {
	if c.CustomerID == "" {
		return errors.New("reservation: customer id is required")
	}
	if c.VenueID == "" {
		return errors.New("reservation: venue id is required")
	}
	if c.When.IsZero() {
		return errors.New("reservation: requested time is required")
	}
	if c.Guests <= 0 {
		return domainreservation.ErrInvalidGuests
	}
	return nil
}

// CreateReservationHandler admits a booking request: venue lock, rule chain,
// CONFIRMED reservation, audit record, outbox events, then a best-effort
// notification once the lock is released.
type CreateReservationHandler struct {
	UoWFactory uow.UoWFactory
	Locks      VenueLocker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   notify.Notifier
	Now        func() time.Time
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.ReservationView, error) {
	now := h.now()

	release, err := acquireVenue(ctx, h.Locks, domainvenue.VenueID(cmd.VenueID))
	if err != nil {
		return nil, err
	}
	defer release()

	unit, execCtx, managed, err := beginManagedUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(execCtx)
			}
		}()
	}

	ven, err := unit.Venues().ByID(execCtx, domainvenue.VenueID(cmd.VenueID))
	if err != nil {
		return nil, err
	}
	cust, err := unit.Customers().ByID(execCtx, domaincustomer.CustomerID(cmd.CustomerID))
	if err != nil {
		return nil, err
	}

	eval := domainavailability.NewEvaluator(unit.Reservations())
	if err := eval.Evaluate(execCtx, domainavailability.Request{
		Venue:  ven,
		When:   cmd.When,
		Guests: cmd.Guests,
		Now:    now,
	}); err != nil {
		return nil, err
	}

	id := cmd.CommandID
	if id == "" {
		id = uuid.NewString()
	}
	res, err := domainreservation.NewReservation(domainreservation.CreateParams{
		ID:         domainreservation.ReservationID(id),
		CustomerID: cust.ID,
		VenueID:    ven.ID,
		When:       cmd.When,
		Guests:     cmd.Guests,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Reservations().Save(execCtx, res); err != nil {
		return nil, err
	}
	if err := stageChange(execCtx, unit, h.Outbox, h.Encoder, res, now); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	view := dto.MapReservation(res)
	release()
	h.Notifier.ReservationChanged(context.WithoutCancel(ctx), cust, res)
	return &view, nil
}

func (h *CreateReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CreateReservationCommand, *dto.ReservationView] = (*CreateReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateReservationCommand)(nil)
var _ middleware.Validatable = (*CreateReservationCommand)(nil)

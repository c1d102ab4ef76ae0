package reservation

import (
	"context"
	"errors"
	"time"

	"tablebook/internal/app/commands"
	"tablebook/internal/app/dto"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/notify"
	"tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	domainavailability "tablebook/internal/domain/availability"
	domainreservation "tablebook/internal/domain/reservation"
)

const modifyReservationKey = "reservation.modify"

type ModifyReservationCommand struct {
	ReservationID string
	When          time.Time
	Guests        int
}

func (c ModifyReservationCommand) Key() string { return modifyReservationKey }

func (c ModifyReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return errors.New("reservation: id is required")
	}
	if c.When.IsZero() {
		return errors.New("reservation: requested time is required")
	}
	if c.Guests <= 0 {
		return domainreservation.ErrInvalidGuests
	}
	return nil
}

// ModifyReservationHandler reschedules a confirmed reservation. The new slot
// passes the full rule chain with the reservation's own guests excluded from
// the capacity sum, so shrinking a party never rejects itself.
type ModifyReservationHandler struct {
	UoWFactory uow.UoWFactory
	Locks      VenueLocker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   notify.Notifier
	Now        func() time.Time
}

func (h *ModifyReservationHandler) Handle(ctx context.Context, cmd ModifyReservationCommand) (*dto.ReservationView, error) {
	now := h.now()

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

	res, err := unit.Reservations().ByID(execCtx, domainreservation.ReservationID(cmd.ReservationID))
	if err != nil {
		return nil, err
	}

	// The venue reference is immutable on the reservation, so resolving it
	// before taking the lock is safe.
	release, err := acquireVenue(ctx, h.Locks, res.VenueID)
	if err != nil {
		return nil, err
	}
	defer release()

	ven, err := unit.Venues().ByID(execCtx, res.VenueID)
	if err != nil {
		return nil, err
	}
	cust, err := unit.Customers().ByID(execCtx, res.CustomerID)
	if err != nil {
		return nil, err
	}

	eval := domainavailability.NewEvaluator(unit.Reservations())
	if err := eval.Evaluate(execCtx, domainavailability.Request{
		Venue:   ven,
		When:    cmd.When,
		Guests:  cmd.Guests,
		Now:     now,
		Exclude: res.ID,
	}); err != nil {
		return nil, err
	}

	if err := res.Reschedule(cmd.When, cmd.Guests, now); err != nil {
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

func (h *ModifyReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[ModifyReservationCommand, *dto.ReservationView] = (*ModifyReservationHandler)(nil)
var _ middleware.Validatable = (*ModifyReservationCommand)(nil)

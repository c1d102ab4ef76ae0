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
	domainreservation "tablebook/internal/domain/reservation"
)

const cancelReservationKey = "reservation.cancel"

type CancelReservationCommand struct {
	ReservationID string
}

func (c CancelReservationCommand) Key() string { return cancelReservationKey }

func (c CancelReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return errors.New("reservation: id is required")
	}
	return nil
}

// CancelReservationHandler releases a confirmed slot. It takes the venue
// lock because a cancellation changes the capacity picture concurrent
// creates are reading.
type CancelReservationHandler struct {
	UoWFactory uow.UoWFactory
	Locks      VenueLocker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   notify.Notifier
	Now        func() time.Time
}

func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*dto.ReservationView, error) {
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

	release, err := acquireVenue(ctx, h.Locks, res.VenueID)
	if err != nil {
		return nil, err
	}
	defer release()

	cust, err := unit.Customers().ByID(execCtx, res.CustomerID)
	if err != nil {
		return nil, err
	}

	if err := res.Cancel(now); err != nil {
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

func (h *CancelReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CancelReservationCommand, *dto.ReservationView] = (*CancelReservationHandler)(nil)
var _ middleware.Validatable = (*CancelReservationCommand)(nil)

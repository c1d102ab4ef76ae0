package reservation

import (
	"context"
	"errors"
	"time"

	"tablebook/internal/app/commands"
	"tablebook/internal/app/dto"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	domainreservation "tablebook/internal/domain/reservation"
)

const completeReservationKey = "reservation.complete"

type CompleteReservationCommand struct {
	ReservationID string
}

func (c CompleteReservationCommand) Key() string { return completeReservationKey }

func (c CompleteReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return errors.New("reservation: id is required")
	}
	return nil
}

// CompleteReservationHandler marks a visit as having happened. The
// transition is silent: it writes history but sends no notification.
type CompleteReservationHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *CompleteReservationHandler) Handle(ctx context.Context, cmd CompleteReservationCommand) (*dto.ReservationView, error) {
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
	if err := res.Complete(now); err != nil {
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
	return &view, nil
}

func (h *CompleteReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CompleteReservationCommand, *dto.ReservationView] = (*CompleteReservationHandler)(nil)
var _ middleware.Validatable = (*CompleteReservationCommand)(nil)

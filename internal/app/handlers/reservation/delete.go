package reservation

import (
	"context"
	"errors"
	"time"

	"tablebook/internal/app/commands"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
)

const deleteReservationKey = "reservation.delete"

type DeleteReservationCommand struct {
	ReservationID string
}

func (c DeleteReservationCommand) Key() string { return deleteReservationKey }

func (c DeleteReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return errors.New("reservation: id is required")
	}
	return nil
}

type DeleteReservationResult struct {
	ID string `json:"id"`
}

// DeleteReservationHandler removes a completed or cancelled reservation.
// A DELETED marker lands in the audit trail before the row disappears;
// the trail itself is never touched. Confirmed reservations are refused
// without any observable mutation.
type DeleteReservationHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *DeleteReservationHandler) Handle(ctx context.Context, cmd DeleteReservationCommand) (*DeleteReservationResult, error) {
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
	if err := res.MarkDeleted(now); err != nil {
		return nil, err
	}
	if _, err := unit.History().Append(execCtx, domainhistory.Snapshot(res, now)); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Delete(execCtx, res.ID); err != nil {
		return nil, err
	}
	pending := res.PendingEvents()
	res.ClearEvents()
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &DeleteReservationResult{ID: string(res.ID)}, nil
}

func (h *DeleteReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[DeleteReservationCommand, *DeleteReservationResult] = (*DeleteReservationHandler)(nil)
var _ middleware.Validatable = (*DeleteReservationCommand)(nil)

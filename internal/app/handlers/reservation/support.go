package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

var ErrUnitOfWorkRequired = errors.New("reservation: unit of work required")

// VenueLocker serializes the read-check-write sequence per venue so two
// overlapping bookings cannot both pass the capacity check. Acquire must
// give up after its wait bound and return a retryable error rather than
// block indefinitely.
type VenueLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func acquireVenue(ctx context.Context, locks VenueLocker, id domainvenue.VenueID) (func(), error) {
	if locks == nil {
		return func() {}, nil
	}
	release, err := locks.Acquire(ctx, string(id))
	if err != nil {
		return nil, fmt.Errorf("reservation: venue %s: %w", id, err)
	}
	// Handlers release explicitly before notifying and keep a defer as the
	// error-path fallback, so the second call must be a no-op.
	return sync.OnceFunc(release), nil
}

// beginManagedUnit adopts a unit of work already present in ctx or starts
// one of its own. managed reports whether the caller owns commit/rollback.
func beginManagedUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, bool, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, false, nil
	}
	if factory == nil {
		return nil, ctx, false, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, false, err
	}
	execCtx := bindUnitContext(ctx, unit)
	return unit, execCtx, true, nil
}

// bindUnitContext gives the unit a chance to bind its session to the
// context (the mongo unit needs a session context for repository calls to
// join its transaction), then stores the unit for nested handlers.
func bindUnitContext(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}

// stageChange appends the audit snapshot for the reservation's new state and
// drains its pending events into the outbox. Runs inside the same unit of
// work as the reservation write, so the trail is all-or-nothing with it.
func stageChange(ctx context.Context, unit uow.UnitOfWork, box outbox.Outbox, encoder outbox.EventEncoder, r *domainreservation.Reservation, now time.Time) error {
	if _, err := unit.History().Append(ctx, domainhistory.Snapshot(r, now)); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	pending := r.PendingEvents()
	r.ClearEvents()
	return outbox.RecordDomainEvents(ctx, box, encoder, pending)
}

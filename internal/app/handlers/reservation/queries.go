package reservation

import (
	"context"
	"errors"
	"sort"

	"tablebook/internal/app/dto"
	"tablebook/internal/app/queries"
	"tablebook/internal/app/uow"
	domainreservation "tablebook/internal/domain/reservation"
)

const (
	getReservationKey   = "reservation.get"
	listReservationsKey = "reservation.list"
	getHistoryKey       = "reservation.history"
)

type GetReservationQuery struct {
	ReservationID string
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type GetReservationHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (*dto.ReservationView, error) {
	if q.ReservationID == "" {
		return nil, errors.New("reservation: id is required")
	}
	unit, execCtx, cleanup, err := beginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	res, err := unit.Reservations().ByID(execCtx, domainreservation.ReservationID(q.ReservationID))
	if err != nil {
		return nil, err
	}
	view := dto.MapReservation(res)
	return &view, nil
}

type ListReservationsQuery struct{}

func (q ListReservationsQuery) Key() string { return listReservationsKey }

type ListReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (dto.ReservationCollection, error) {
	unit, execCtx, cleanup, err := beginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	all, err := unit.Reservations().List(execCtx)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	items := make([]dto.ReservationView, 0, len(all))
	for _, res := range all {
		items = append(items, dto.MapReservation(res))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].When.Equal(items[j].When) {
			return items[i].ID < items[j].ID
		}
		return items[i].When.Before(items[j].When)
	})
	return dto.ReservationCollection{Items: items}, nil
}

// GetHistoryQuery returns the audit trail for a reservation id. The trail
// outlives the reservation, so no existence check is made against the live
// store: a deleted reservation still answers with its full history.
type GetHistoryQuery struct {
	ReservationID string
}

func (q GetHistoryQuery) Key() string { return getHistoryKey }

type GetHistoryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHistoryHandler) Handle(ctx context.Context, q GetHistoryQuery) (dto.HistoryCollection, error) {
	if q.ReservationID == "" {
		return dto.HistoryCollection{}, errors.New("reservation: id is required")
	}
	unit, execCtx, cleanup, err := beginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HistoryCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	recs, err := unit.History().ByReservation(execCtx, domainreservation.ReservationID(q.ReservationID))
	if err != nil {
		return dto.HistoryCollection{}, err
	}
	return dto.MapHistory(recs), nil
}

func beginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := bindUnitContext(ctx, unit)
	cleanup := func() {
		_ = unit.Rollback(execCtx)
	}
	return unit, execCtx, cleanup, nil
}

var _ queries.Handler[GetReservationQuery, *dto.ReservationView] = (*GetReservationHandler)(nil)
var _ queries.Handler[ListReservationsQuery, dto.ReservationCollection] = (*ListReservationsHandler)(nil)
var _ queries.Handler[GetHistoryQuery, dto.HistoryCollection] = (*GetHistoryHandler)(nil)

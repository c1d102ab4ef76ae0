package memory

import (
	"context"
	"errors"

	"tablebook/internal/app/uow"
	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	VenueRepo       domainvenue.Repository
	CustomerRepo    domaincustomer.Repository
	ReservationRepo domainreservation.Repository
	HistoryRepo     domainhistory.Store
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.VenueRepo == nil || f.CustomerRepo == nil || f.ReservationRepo == nil || f.HistoryRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		venues:       f.VenueRepo,
		customers:    f.CustomerRepo,
		reservations: f.ReservationRepo,
		history:      f.HistoryRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	venues       domainvenue.Repository
	customers    domaincustomer.Repository
	reservations domainreservation.Repository
	history      domainhistory.Store
}

func (u *Unit) Venues() domainvenue.Repository {
	return u.venues
}

func (u *Unit) Customers() domaincustomer.Repository {
	return u.customers
}

func (u *Unit) Reservations() domainreservation.Repository {
	return u.reservations
}

func (u *Unit) History() domainhistory.Store {
	return u.history
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)

package uow

import (
	"context"

	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// reservation change and its history record commit or roll back together.
type UnitOfWork interface {
	Venues() domainvenue.Repository
	Customers() domaincustomer.Repository
	Reservations() domainreservation.Repository
	History() domainhistory.Store

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

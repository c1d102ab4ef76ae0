package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tablebook/internal/app/uow"
	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	VenueRepo       domainvenue.Repository
	CustomerRepo    domaincustomer.Repository
	ReservationRepo domainreservation.Repository
	HistoryRepo     domainhistory.Store
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		venues:       f.VenueRepo,
		customers:    f.CustomerRepo,
		reservations: f.ReservationRepo,
		history:      f.HistoryRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)

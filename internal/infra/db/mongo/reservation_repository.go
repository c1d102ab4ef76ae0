package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincustomer "tablebook/internal/domain/customer"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("agg_reservation")}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrReservationNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	out, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if out.MatchedCount == 0 && out.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id domainreservation.ReservationID) error {
	out, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if out.DeletedCount == 0 {
		return domainreservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) List(ctx context.Context) ([]*domainreservation.Reservation, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainreservation.Reservation
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

// ConfirmedGuestsBetween sums confirmed guest counts with exclusive window
// bounds, optionally skipping one reservation, pushed down to an aggregation
// so the hot path never loads whole documents.
func (r *ReservationRepository) ConfirmedGuestsBetween(ctx context.Context, venueID domainvenue.VenueID, from, to time.Time, exclude domainreservation.ReservationID) (int, error) {
	match := bson.M{
		"venue_id": string(venueID),
		"status":   string(domainreservation.StatusConfirmed),
		"when":     bson.M{"$gt": from.UnixMilli(), "$lt": to.UnixMilli()},
	}
	if exclude != "" {
		match["_id"] = bson.M{"$ne": string(exclude)}
	}
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": nil, "guests": bson.M{"$sum": "$guests"}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var row struct {
		Guests int `bson:"guests"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Guests, cur.Err()
}

type reservationDocument struct {
	ID         string `bson:"_id"`
	CustomerID string `bson:"customer_id"`
	VenueID    string `bson:"venue_id"`
	When       int64  `bson:"when"`
	Guests     int    `bson:"guests"`
	Status     string `bson:"status"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
	Version    int64  `bson:"version"`
}

func newReservationDocument(res *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:         string(res.ID),
		CustomerID: string(res.CustomerID),
		VenueID:    string(res.VenueID),
		When:       res.When.UnixMilli(),
		Guests:     res.Guests,
		Status:     string(res.Status),
		CreatedAt:  res.CreatedAt.UnixMilli(),
		UpdatedAt:  res.UpdatedAt.UnixMilli(),
		Version:    res.Version,
	}
}

func (d reservationDocument) toAggregate() *domainreservation.Reservation {
	return &domainreservation.Reservation{
		ID:         domainreservation.ReservationID(d.ID),
		CustomerID: domaincustomer.CustomerID(d.CustomerID),
		VenueID:    domainvenue.VenueID(d.VenueID),
		When:       timestampToTime(d.When),
		Guests:     d.Guests,
		Status:     domainreservation.Status(d.Status),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)

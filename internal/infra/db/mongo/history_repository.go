package mongo

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// HistoryRepository appends audit records. A counters document hands out the
// global sequence so records written in the same millisecond keep their
// insertion order.
type HistoryRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		col:      db.Collection("audit_history"),
		counters: db.Collection("counters"),
	}
}

func (r *HistoryRepository) Append(ctx context.Context, rec domainhistory.Record) (domainhistory.Record, error) {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return domainhistory.Record{}, err
	}
	rec.Seq = seq
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	doc := historyDocument{
		ID:            rec.ID,
		ReservationID: string(rec.ReservationID),
		CustomerID:    string(rec.CustomerID),
		VenueID:       string(rec.VenueID),
		When:          rec.When.UnixMilli(),
		Guests:        rec.Guests,
		Status:        string(rec.Status),
		RecordedAt:    rec.RecordedAt.UnixMilli(),
		Seq:           rec.Seq,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return domainhistory.Record{}, err
	}
	return rec, nil
}

func (r *HistoryRepository) ByReservation(ctx context.Context, id domainreservation.ReservationID) ([]domainhistory.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"reservation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]domainhistory.Record, 0)
	for cur.Next(ctx) {
		var doc historyDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainhistory.Record{
			ID:            doc.ID,
			ReservationID: domainreservation.ReservationID(doc.ReservationID),
			CustomerID:    domaincustomer.CustomerID(doc.CustomerID),
			VenueID:       domainvenue.VenueID(doc.VenueID),
			When:          timestampToTime(doc.When),
			Guests:        doc.Guests,
			Status:        domainreservation.Status(doc.Status),
			RecordedAt:    timestampToTime(doc.RecordedAt),
			Seq:           doc.Seq,
		})
	}
	return out, cur.Err()
}

func (r *HistoryRepository) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var row struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "audit_history_seq"},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&row)
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

type historyDocument struct {
	ID            string `bson:"_id"`
	ReservationID string `bson:"reservation_id"`
	CustomerID    string `bson:"customer_id"`
	VenueID       string `bson:"venue_id"`
	When          int64  `bson:"when"`
	Guests        int    `bson:"guests"`
	Status        string `bson:"status"`
	RecordedAt    int64  `bson:"recorded_at"`
	Seq           int64  `bson:"seq"`
}

var _ domainhistory.Store = (*HistoryRepository)(nil)

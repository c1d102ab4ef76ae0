package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainvenue "tablebook/internal/domain/venue"
)

type VenueRepository struct {
	col *mongo.Collection
}

func NewVenueRepository(db *mongo.Database) *VenueRepository {
	return &VenueRepository{col: db.Collection("ref_venue")}
}

func (r *VenueRepository) ByID(ctx context.Context, id domainvenue.VenueID) (*domainvenue.Venue, error) {
	var doc venueDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainvenue.ErrVenueNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *VenueRepository) List(ctx context.Context) ([]*domainvenue.Venue, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainvenue.Venue
	for cur.Next(ctx) {
		var doc venueDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *VenueRepository) Save(ctx context.Context, v *domainvenue.Venue) error {
	doc := newVenueDocument(v)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type venueDocument struct {
	ID       string           `bson:"_id"`
	Name     string           `bson:"name"`
	Capacity int              `bson:"capacity"`
	Windows  []windowDocument `bson:"windows"`
}

type windowDocument struct {
	Weekday int `bson:"weekday"`
	Open    int `bson:"open"`
	Close   int `bson:"close"`
}

func newVenueDocument(v *domainvenue.Venue) venueDocument {
	doc := venueDocument{
		ID:       string(v.ID),
		Name:     v.Name,
		Capacity: v.Capacity,
	}
	for _, w := range v.Windows {
		doc.Windows = append(doc.Windows, windowDocument{
			Weekday: int(w.Weekday),
			Open:    w.Open.MinuteOfDay(),
			Close:   w.Close.MinuteOfDay(),
		})
	}
	return doc
}

func (d venueDocument) toAggregate() *domainvenue.Venue {
	ven := &domainvenue.Venue{
		ID:       domainvenue.VenueID(d.ID),
		Name:     d.Name,
		Capacity: d.Capacity,
	}
	for _, w := range d.Windows {
		ven.Windows = append(ven.Windows, domainvenue.BusinessWindow{
			Weekday: time.Weekday(w.Weekday),
			Open:    minuteToClock(w.Open),
			Close:   minuteToClock(w.Close),
		})
	}
	return ven
}

func minuteToClock(m int) domainvenue.ClockTime {
	return domainvenue.ClockTime{Hour: m / 60, Minute: m % 60}
}

var _ domainvenue.Repository = (*VenueRepository)(nil)

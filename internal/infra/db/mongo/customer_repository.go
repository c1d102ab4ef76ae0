package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincustomer "tablebook/internal/domain/customer"
)

type CustomerRepository struct {
	col *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{col: db.Collection("ref_customer")}
}

func (r *CustomerRepository) ByID(ctx context.Context, id domaincustomer.CustomerID) (*domaincustomer.Customer, error) {
	var doc customerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincustomer.ErrCustomerNotFound
		}
		return nil, err
	}
	return &domaincustomer.Customer{
		ID:    domaincustomer.CustomerID(doc.ID),
		Name:  doc.Name,
		Phone: doc.Phone,
	}, nil
}

func (r *CustomerRepository) Save(ctx context.Context, c *domaincustomer.Customer) error {
	doc := customerDocument{ID: string(c.ID), Name: c.Name, Phone: c.Phone}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type customerDocument struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
}

var _ domaincustomer.Repository = (*CustomerRepository)(nil)

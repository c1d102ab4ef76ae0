package customer

import (
	"context"
	"errors"
)

var ErrCustomerNotFound = errors.New("customer: not found")

type CustomerID string

// Customer is the booking party. The engine only needs an identity and a
// phone number to address text notifications.
type Customer struct {
	ID    CustomerID
	Name  string
	Phone string
}

type Repository interface {
	ByID(ctx context.Context, id CustomerID) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
}

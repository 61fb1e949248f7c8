package repository

import (
	"context"
	"errors"

	"github.com/jmehdipour/customers-api/internal/model"
)

// ErrNotFound is returned when no customer has the requested id.
var ErrNotFound = errors.New("customer not found")

// CustomersRepository is implemented by every storage backend.
type CustomersRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	Get(ctx context.Context, id string) (*model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.Filter) ([]model.Customer, error)
	DeleteAll(ctx context.Context) (int64, error)
}

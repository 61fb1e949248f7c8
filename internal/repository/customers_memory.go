package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/jmehdipour/customers-api/internal/model"
)

// MemoryCustomersRepository keeps customers in process. Ids are sequential.
type MemoryCustomersRepository struct {
	mu     sync.RWMutex
	nextID int64
	order  []string
	byID   map[string]model.Customer
}

func NewMemoryCustomersRepository() *MemoryCustomersRepository {
	return &MemoryCustomersRepository{byID: make(map[string]model.Customer)}
}

var _ CustomersRepository = (*MemoryCustomersRepository)(nil)

func (r *MemoryCustomersRepository) Create(_ context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c.ID = strconv.FormatInt(r.nextID, 10)
	r.byID[c.ID] = *c
	r.order = append(r.order, c.ID)
	return nil
}

func (r *MemoryCustomersRepository) Get(_ context.Context, id string) (*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCustomersRepository) Update(_ context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; !ok {
		return ErrNotFound
	}
	r.byID[c.ID] = *c
	return nil
}

func (r *MemoryCustomersRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryCustomersRepository) List(_ context.Context, f model.Filter) ([]model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Customer{}
	for _, id := range r.order {
		if c := r.byID[id]; f.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryCustomersRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.byID))
	r.byID = make(map[string]model.Customer)
	r.order = nil
	return n, nil
}

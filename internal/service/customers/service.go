package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/customers-api/internal/events"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/metrics"
	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/jmehdipour/customers-api/internal/util"
	"go.uber.org/zap"
)

// NotFoundError carries the id that could not be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Customer with id '%s' was not found.", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == repository.ErrNotFound }

// ErrHistoryDisabled is returned by History when no audit store is configured.
var ErrHistoryDisabled = errors.New("customer event history is not enabled")

// Service maps each REST operation onto one repository call and announces
// mutations through the publisher.
type Service struct {
	repo    repository.CustomersRepository
	history repository.EventsRepository
	pub     events.Publisher
	now     func() time.Time
}

// New constructs the customers service. history may be nil.
func New(repo repository.CustomersRepository, history repository.EventsRepository, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{repo: repo, history: history, pub: pub, now: time.Now}
}

func (s *Service) HistoryEnabled() bool { return s.history != nil }

func (s *Service) List(ctx context.Context, f model.Filter) ([]model.Customer, error) {
	out, err := s.repo.List(ctx, f)
	observe("list", err)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, c model.Customer) (*model.Customer, error) {
	c.ID = ""
	err := s.repo.Create(ctx, &c)
	observe("create", err)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.publish(ctx, model.EventCreated, c.ID, &c)
	return &c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.repo.Get(ctx, id)
	observe("get", err)
	if err != nil {
		return nil, s.wrap(id, "get customer", err)
	}
	return c, nil
}

// Update overwrites the stored customer. The identifier always comes from id.
func (s *Service) Update(ctx context.Context, id string, c model.Customer) (*model.Customer, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		observe("update", err)
		return nil, s.wrap(id, "update customer", err)
	}
	c.ID = id
	err := s.repo.Update(ctx, &c)
	observe("update", err)
	if err != nil {
		return nil, s.wrap(id, "update customer", err)
	}
	s.publish(ctx, model.EventUpdated, c.ID, &c)
	return &c, nil
}

// Delete removes the customer. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		observe("delete", nil)
		return nil
	}
	observe("delete", err)
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	s.publish(ctx, model.EventDeleted, id, nil)
	return nil
}

func (s *Service) Unsubscribe(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		observe("unsubscribe", err)
		return nil, s.wrap(id, "unsubscribe customer", err)
	}
	c.Subscribed = false
	err = s.repo.Update(ctx, c)
	observe("unsubscribe", err)
	if err != nil {
		return nil, s.wrap(id, "unsubscribe customer", err)
	}
	s.publish(ctx, model.EventUnsubscribed, c.ID, c)
	return c, nil
}

func (s *Service) Address(ctx context.Context, id string) (*model.Address, error) {
	c, err := s.repo.Get(ctx, id)
	observe("address", err)
	if err != nil {
		return nil, s.wrap(id, "get address", err)
	}
	return &c.Address, nil
}

// Reset removes every customer and returns how many were deleted.
func (s *Service) Reset(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	observe("reset", err)
	if err != nil {
		return 0, fmt.Errorf("reset customers: %w", err)
	}
	logger.Log.Info("customers reset", zap.Int64("deleted", n))
	s.publish(ctx, model.EventReset, "", nil)
	return n, nil
}

// History returns the audit trail of one customer, newest first.
func (s *Service) History(ctx context.Context, id string, limit, offset int) ([]model.Event, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	out, err := s.history.ListByCustomer(ctx, id, limit, offset)
	observe("history", err)
	if err != nil {
		return nil, fmt.Errorf("customer %s history: %w", id, err)
	}
	return out, nil
}

func (s *Service) wrap(id, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func (s *Service) publish(ctx context.Context, t model.EventType, customerID string, c *model.Customer) {
	ev := model.Event{
		ID:         util.NewID(),
		Type:       t,
		CustomerID: customerID,
		Customer:   c,
		OccurredAt: s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(t.String(), "failed").Inc()
		logger.Log.Warn("publish customer event",
			zap.String("type", t.String()),
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(t.String(), "ok").Inc()
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.OperationsTotal.WithLabelValues(op, result).Inc()
}

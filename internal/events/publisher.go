package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/customers-api/internal/kafka"
	"github.com/jmehdipour/customers-api/internal/model"
)

const DefaultTopic = "customers.events"

// ErrBreakerOpen is returned while the broker is considered down.
var ErrBreakerOpen = errors.New("events: circuit breaker open")

// Publisher announces customer lifecycle changes.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
	Close() error
}

// MessageWriter is the part of kafka.Producer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w       MessageWriter
	br      *breaker
	timeout time.Duration
}

type BreakerOpts struct {
	FailThreshold int
	OpenFor       time.Duration
}

func NewKafkaPublisher(w MessageWriter, opts BreakerOpts, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KafkaPublisher{
		w:       w,
		br:      newBreaker(opts.FailThreshold, opts.OpenFor),
		timeout: timeout,
	}
}

var _ Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("events: unknown type %q", ev.Type)
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if !p.br.tryAcquire() {
		return ErrBreakerOpen
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.CustomerID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type.String())},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.br.onFailure()
		return fmt.Errorf("events: write: %w", err)
	}
	p.br.onSuccess()
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) error { return nil }
func (NopPublisher) Close() error                              { return nil }

package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 10ms
	WriteTimeout time.Duration // default 5s
	RequiredAcks string        // "one" (default), "all" or "none"
}

// Producer wraps a kafka-go Writer bound to a single topic.
// Messages with the same key land on the same partition.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(c ProducerConfig) (*Producer, error) {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 5 * time.Second
	}
	acks, err := ParseRequiredAcks(c.RequiredAcks)
	if err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
	}
	return &Producer{w: w}, nil
}

// ParseRequiredAcks maps the config spelling onto kafka-go acks. Empty means "one".
func ParseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one":
		return kafka.RequireOne, nil
	case "all":
		return kafka.RequireAll, nil
	case "none":
		return kafka.RequireNone, nil
	default:
		return kafka.RequireOne, fmt.Errorf("kafka: unknown required_acks %q (want one, all or none)", s)
	}
}

func (p *Producer) WriteMessages(ctx context.Context, msgs ...Message) error {
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error { return p.w.Close() }

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/customers-api/internal/kafka"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/metrics"
	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/repository"
	"go.uber.org/zap"
)

// Consumer is the part of kafka.Consumer the audit worker needs.
type Consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Audit copies customer lifecycle events from Kafka into ClickHouse.
// Offsets are committed only after the batch holding them was inserted,
// so delivery is at-least-once.
type Audit struct {
	Consumer Consumer
	Events   repository.EventsRepository

	BatchSize     int           // max buffered messages per flush
	BatchWait     time.Duration // max time between flushes
	RetryWait     time.Duration // pause after a failed flush
	ShutdownFlush time.Duration // budget for the final flush
}

func NewAudit(consumer Consumer, events repository.EventsRepository) *Audit {
	return &Audit{
		Consumer:      consumer,
		Events:        events,
		BatchSize:     500,
		BatchWait:     time.Second,
		RetryWait:     2 * time.Second,
		ShutdownFlush: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled, then flushes what is buffered.
func (w *Audit) Run(ctx context.Context) error {
	if w.Consumer == nil || w.Events == nil {
		return errors.New("audit: consumer and events repository are required")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 500
	}
	if w.BatchWait <= 0 {
		w.BatchWait = time.Second
	}
	if w.RetryWait <= 0 {
		w.RetryWait = 2 * time.Second
	}
	if w.ShutdownFlush <= 0 {
		w.ShutdownFlush = 5 * time.Second
	}

	msgCh := make(chan kafka.Message, w.BatchSize)
	go w.fetch(ctx, msgCh)

	ticker := time.NewTicker(w.BatchWait)
	defer ticker.Stop()

	b := &batch{}
	for {
		select {
		case m, ok := <-msgCh:
			if !ok {
				fctx, cancel := context.WithTimeout(context.Background(), w.ShutdownFlush)
				err := w.flush(fctx, b)
				cancel()
				return err
			}
			b.add(m)
			if len(b.msgs) >= w.BatchSize {
				if err := w.flush(ctx, b); err != nil {
					sleepCtx(ctx, w.RetryWait)
				}
			}
		case <-ticker.C:
			_ = w.flush(ctx, b)
		}
	}
}

func (w *Audit) fetch(ctx context.Context, out chan<- kafka.Message) {
	defer close(out)
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn("audit: kafka fetch", zap.Error(err))
			sleepCtx(ctx, 200*time.Millisecond)
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

// flush inserts the decoded events and commits every buffered offset,
// poison messages included. On insert failure the batch is kept for retry.
func (w *Audit) flush(ctx context.Context, b *batch) error {
	if len(b.msgs) == 0 {
		return nil
	}
	if len(b.rows) > 0 {
		if err := w.Events.InsertBatch(ctx, b.rows); err != nil {
			metrics.AuditRowsTotal.WithLabelValues("failed").Add(float64(len(b.rows)))
			logger.Log.Error("audit: insert batch", zap.Int("rows", len(b.rows)), zap.Error(err))
			return err
		}
		metrics.AuditRowsTotal.WithLabelValues("inserted").Add(float64(len(b.rows)))
	}
	if b.skipped > 0 {
		metrics.AuditRowsTotal.WithLabelValues("skipped").Add(float64(b.skipped))
	}
	if err := w.Consumer.Commit(ctx, b.msgs...); err != nil {
		// rows are in; a redelivery only duplicates them
		logger.Log.Warn("audit: commit offsets", zap.Int("messages", len(b.msgs)), zap.Error(err))
	}
	b.reset()
	return nil
}

type batch struct {
	msgs    []kafka.Message
	rows    []model.Event
	skipped int
}

func (b *batch) add(m kafka.Message) {
	b.msgs = append(b.msgs, m)
	ev, err := decodeEvent(m.Value)
	if err != nil {
		b.skipped++
		logger.Log.Warn("audit: skip poison message",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		return
	}
	b.rows = append(b.rows, ev)
}

func (b *batch) reset() {
	b.msgs = b.msgs[:0]
	b.rows = b.rows[:0]
	b.skipped = 0
}

func decodeEvent(raw []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Event{}, err
	}
	if ev.ID == "" {
		return model.Event{}, errors.New("event without id")
	}
	if !ev.Type.Valid() {
		return model.Event{}, errors.New("unknown event type " + ev.Type.String())
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/customers-api/internal/kafka"
	"github.com/jmehdipour/customers-api/internal/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeWriter struct {
	fail error
	sent []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.fail != nil {
		return w.fail
	}
	w.sent = append(w.sent, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()
	ev := model.Event{
		ID:         "01HZ0000000000000000000000",
		Type:       model.EventCreated,
		CustomerID: "7",
		Customer:   &model.Customer{ID: "7", FirstName: "John"},
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	Convey("Given a healthy broker", t, func() {
		w := &fakeWriter{}
		p := NewKafkaPublisher(w, BreakerOpts{FailThreshold: 2, OpenFor: time.Minute}, time.Second)

		So(p.Publish(ctx, ev), ShouldBeNil)

		Convey("Then the event is keyed by customer and JSON encoded", func() {
			So(len(w.sent), ShouldEqual, 1)
			So(string(w.sent[0].Key), ShouldEqual, "7")
			var back model.Event
			So(json.Unmarshal(w.sent[0].Value, &back), ShouldBeNil)
			So(back.Type, ShouldEqual, model.EventCreated)
			So(back.Customer.FirstName, ShouldEqual, "John")
			So(string(w.sent[0].Headers[0].Value), ShouldEqual, "created")
		})
	})

	Convey("Given an unknown event type", t, func() {
		p := NewKafkaPublisher(&fakeWriter{}, BreakerOpts{}, 0)
		bad := ev
		bad.Type = "renamed"
		So(p.Publish(ctx, bad), ShouldNotBeNil)
	})

	Convey("Given a broker that keeps failing", t, func() {
		w := &fakeWriter{fail: errors.New("connection refused")}
		p := NewKafkaPublisher(w, BreakerOpts{FailThreshold: 2, OpenFor: time.Minute}, time.Second)

		So(p.Publish(ctx, ev), ShouldNotBeNil)
		So(p.Publish(ctx, ev), ShouldNotBeNil)

		Convey("Then the breaker opens and publishing short-circuits", func() {
			So(errors.Is(p.Publish(ctx, ev), ErrBreakerOpen), ShouldBeTrue)
		})
	})
}

func TestBreaker(t *testing.T) {
	Convey("Given a tripped breaker", t, func() {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		b := newBreaker(1, time.Second)
		b.now = func() time.Time { return now }

		So(b.tryAcquire(), ShouldBeTrue)
		b.onFailure()
		So(b.isOpen(), ShouldBeTrue)
		So(b.tryAcquire(), ShouldBeFalse)

		Convey("When the open window passes a single probe is allowed", func() {
			now = now.Add(2 * time.Second)
			So(b.tryAcquire(), ShouldBeTrue)
			So(b.tryAcquire(), ShouldBeFalse)

			Convey("And a successful probe closes it", func() {
				b.onSuccess()
				So(b.isOpen(), ShouldBeFalse)
				So(b.tryAcquire(), ShouldBeTrue)
			})

			Convey("And a failed probe reopens it", func() {
				b.onFailure()
				So(b.isOpen(), ShouldBeTrue)
				So(b.tryAcquire(), ShouldBeFalse)
			})
		})
	})
}

func TestNopPublisher(t *testing.T) {
	Convey("NopPublisher accepts everything", t, func() {
		var p Publisher = NopPublisher{}
		So(p.Publish(context.Background(), model.Event{}), ShouldBeNil)
		So(p.Close(), ShouldBeNil)
	})
}

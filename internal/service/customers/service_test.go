package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/repository"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingPublisher struct {
	fail   error
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.Event) error {
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeHistory struct {
	gotID string
	rows  []model.Event
}

func (h *fakeHistory) InsertBatch(context.Context, []model.Event) error { return nil }

func (h *fakeHistory) ListByCustomer(_ context.Context, id string, _, _ int) ([]model.Event, error) {
	h.gotID = id
	return h.rows, nil
}

func john() model.Customer {
	return model.Customer{
		FirstName:  "John",
		LastName:   "Doe",
		Email:      "fake1@email.com",
		Subscribed: true,
		Address: model.Address{
			Address1: "123 Main St",
			Address2: "1B",
			City:     "New York",
			Province: "NY",
			Country:  "USA",
			Zip:      "12310",
		},
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over an empty store", t, func() {
		pub := &recordingPublisher{}
		svc := New(repository.NewMemoryCustomersRepository(), nil, pub)

		Convey("When a customer is created", func() {
			in := john()
			in.ID = "client-chosen"
			created, err := svc.Create(ctx, in)
			So(err, ShouldBeNil)

			Convey("Then the store assigns the id and a created event is published", func() {
				So(created.ID, ShouldNotEqual, "client-chosen")
				So(len(pub.events), ShouldEqual, 1)
				So(pub.events[0].Type, ShouldEqual, model.EventCreated)
				So(pub.events[0].CustomerID, ShouldEqual, created.ID)
				So(pub.events[0].ID, ShouldNotBeEmpty)
			})

			Convey("Then fetching returns identical data", func() {
				got, err := svc.Get(ctx, created.ID)
				So(err, ShouldBeNil)
				So(*got, ShouldResemble, *created)
			})

			Convey("Then update keeps the path id and ignores the body id", func() {
				body := john()
				body.ID = "999"
				body.Email = "new@email.com"
				updated, err := svc.Update(ctx, created.ID, body)
				So(err, ShouldBeNil)
				So(updated.ID, ShouldEqual, created.ID)
				So(updated.Email, ShouldEqual, "new@email.com")

				list, _ := svc.List(ctx, model.Filter{})
				So(len(list), ShouldEqual, 1)
			})

			Convey("Then unsubscribe clears the flag and persists it", func() {
				c, err := svc.Unsubscribe(ctx, created.ID)
				So(err, ShouldBeNil)
				So(c.Subscribed, ShouldBeFalse)
				got, _ := svc.Get(ctx, created.ID)
				So(got.Subscribed, ShouldBeFalse)
				So(pub.events[len(pub.events)-1].Type, ShouldEqual, model.EventUnsubscribed)
			})

			Convey("Then the address is returned on its own", func() {
				a, err := svc.Address(ctx, created.ID)
				So(err, ShouldBeNil)
				So(a.City, ShouldEqual, "New York")
			})

			Convey("Then delete removes it and is idempotent", func() {
				So(svc.Delete(ctx, created.ID), ShouldBeNil)
				So(svc.Delete(ctx, created.ID), ShouldBeNil)
				list, _ := svc.List(ctx, model.Filter{})
				So(list, ShouldBeEmpty)
				So(pub.events[len(pub.events)-1].Type, ShouldEqual, model.EventDeleted)
			})

			Convey("Then reset empties the store", func() {
				n, err := svc.Reset(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				list, _ := svc.List(ctx, model.Filter{})
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When an unknown id is used", func() {
			_, err := svc.Get(ctx, "42")

			Convey("Then a NotFoundError names it", func() {
				var nf *NotFoundError
				So(errors.As(err, &nf), ShouldBeTrue)
				So(nf.Error(), ShouldEqual, "Customer with id '42' was not found.")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then update, unsubscribe and address all report not found", func() {
				_, err := svc.Update(ctx, "42", john())
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Unsubscribe(ctx, "42")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Address(ctx, "42")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(pub.events, ShouldBeEmpty)
			})
		})

		Convey("When history is requested without an audit store", func() {
			So(svc.HistoryEnabled(), ShouldBeFalse)
			_, err := svc.History(ctx, "1", 10, 0)
			So(errors.Is(err, ErrHistoryDisabled), ShouldBeTrue)
		})
	})

	Convey("Given a publisher that fails", t, func() {
		svc := New(repository.NewMemoryCustomersRepository(), nil, &recordingPublisher{fail: errors.New("broker down")})

		Convey("Then the mutation still succeeds", func() {
			c, err := svc.Create(ctx, john())
			So(err, ShouldBeNil)
			So(c.ID, ShouldNotBeEmpty)
		})
	})

	Convey("Given an audit store", t, func() {
		h := &fakeHistory{rows: []model.Event{{ID: "e1", Type: model.EventCreated, CustomerID: "3"}}}
		svc := New(repository.NewMemoryCustomersRepository(), h, nil)

		rows, err := svc.History(ctx, "3", 10, 0)

		So(err, ShouldBeNil)
		So(svc.HistoryEnabled(), ShouldBeTrue)
		So(h.gotID, ShouldEqual, "3")
		So(len(rows), ShouldEqual, 1)
	})
}

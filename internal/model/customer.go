package model

import "time"

// Customer is the persisted customer record. ID is assigned by the store.
type Customer struct {
	ID         string  `json:"id"         bson:"_id,omitempty"`
	FirstName  string  `json:"firstname"  bson:"firstname"`
	LastName   string  `json:"lastname"   bson:"lastname"`
	Email      string  `json:"email"      bson:"email"`
	Subscribed bool    `json:"subscribed" bson:"subscribed"`
	Address    Address `json:"address"    bson:"address"`
}

type Address struct {
	Address1 string `json:"address1" bson:"address1"`
	Address2 string `json:"address2" bson:"address2"`
	City     string `json:"city"     bson:"city"`
	Province string `json:"province" bson:"province"`
	Country  string `json:"country"  bson:"country"`
	Zip      string `json:"zip"      bson:"zip"`
}

// EventType is the kind of customer lifecycle change.
type EventType string

const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventDeleted      EventType = "deleted"
	EventUnsubscribed EventType = "unsubscribed"
	EventReset        EventType = "reset"
)

func (t EventType) String() string { return string(t) }

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted, EventUnsubscribed, EventReset:
		return true
	}
	return false
}

// Event is published to Kafka on every customer mutation and lands in ClickHouse.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	CustomerID string    `json:"customer_id"`
	Customer   *Customer `json:"customer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

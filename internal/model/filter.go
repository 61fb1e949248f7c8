package model

import (
	"net/url"
	"strings"
)

// Filter holds optional equality constraints for listing customers.
// Empty strings and a nil Subscribed mean "no constraint"; the rest are ANDed.
type Filter struct {
	Email      string
	FirstName  string
	LastName   string
	Subscribed *bool
	Address1   string
	Address2   string
	City       string
	Province   string
	Country    string
	Zip        string
}

// Condition is one active constraint. Field is the wire name of the attribute.
type Condition struct {
	Field     string
	InAddress bool
	Value     any
}

// FilterFromQuery reads the supported query parameters.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{
		Email:     q.Get("email"),
		FirstName: q.Get("firstname"),
		LastName:  q.Get("lastname"),
		Address1:  q.Get("address1"),
		Address2:  q.Get("address2"),
		City:      q.Get("city"),
		Province:  q.Get("province"),
		Country:   q.Get("country"),
		Zip:       q.Get("zip"),
	}
	if raw := q.Get("subscribed"); raw != "" {
		v := ParseBool(raw)
		f.Subscribed = &v
	}
	return f
}

// ParseBool treats "true" and "1" (any case) as true and everything else as false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true
	}
	return false
}

// Conditions lists the active constraints in a stable order.
func (f Filter) Conditions() []Condition {
	var out []Condition
	add := func(field string, inAddr bool, v string) {
		if v != "" {
			out = append(out, Condition{Field: field, InAddress: inAddr, Value: v})
		}
	}
	add("email", false, f.Email)
	add("firstname", false, f.FirstName)
	add("lastname", false, f.LastName)
	if f.Subscribed != nil {
		out = append(out, Condition{Field: "subscribed", Value: *f.Subscribed})
	}
	add("address1", true, f.Address1)
	add("address2", true, f.Address2)
	add("city", true, f.City)
	add("province", true, f.Province)
	add("country", true, f.Country)
	add("zip", true, f.Zip)
	return out
}

func (f Filter) Empty() bool { return len(f.Conditions()) == 0 }

// Matches reports whether c satisfies every constraint of f.
func (f Filter) Matches(c Customer) bool {
	for _, cond := range f.Conditions() {
		if c.field(cond.Field) != cond.Value {
			return false
		}
	}
	return true
}

func (c Customer) field(name string) any {
	switch name {
	case "email":
		return c.Email
	case "firstname":
		return c.FirstName
	case "lastname":
		return c.LastName
	case "subscribed":
		return c.Subscribed
	case "address1":
		return c.Address.Address1
	case "address2":
		return c.Address.Address2
	case "city":
		return c.Address.City
	case "province":
		return c.Address.Province
	case "country":
		return c.Address.Country
	case "zip":
		return c.Address.Zip
	}
	return nil
}

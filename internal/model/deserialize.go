package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const badDataMsg = "Invalid customer: body of request contained bad or no data"

// customerPayload mirrors Customer with pointer fields so a missing key can be
// told apart from a zero value. `required` on a pointer only checks presence.
type customerPayload struct {
	FirstName  *string         `json:"firstname"  validate:"required,max=63"`
	LastName   *string         `json:"lastname"   validate:"required,max=63"`
	Email      *string         `json:"email"      validate:"required,max=63"`
	Subscribed *bool           `json:"subscribed" validate:"required"`
	Address    *addressPayload `json:"address"    validate:"required"`
}

type addressPayload struct {
	Address1 *string `json:"address1" validate:"required,max=63"`
	Address2 *string `json:"address2" validate:"required,max=63"`
	City     *string `json:"city"     validate:"required,max=63"`
	Province *string `json:"province" validate:"required,max=63"`
	Country  *string `json:"country"  validate:"required,max=63"`
	Zip      *string `json:"zip"      validate:"required,max=63"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Deserialize parses a JSON body into a Customer. Every field except id must
// be present; the id, if any, is ignored.
func Deserialize(data []byte) (Customer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Customer{}, newValidationError(badDataMsg)
	}

	var p customerPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Customer{}, newValidationError(badDataMsg)
	}
	return p.toCustomer()
}

// CustomerFromForm builds a Customer from an urlencoded form post.
func CustomerFromForm(form url.Values) (Customer, error) {
	get := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}

	p := customerPayload{
		FirstName: get("firstname"),
		LastName:  get("lastname"),
		Email:     get("email"),
		Address: &addressPayload{
			Address1: get("address1"),
			Address2: get("address2"),
			City:     get("city"),
			Province: get("province"),
			Country:  get("country"),
			Zip:      get("zip"),
		},
	}
	if s := get("subscribed"); s != nil {
		sub := *s != "false"
		p.Subscribed = &sub
	}
	return p.toCustomer()
}

func (p customerPayload) toCustomer() (Customer, error) {
	if err := validate.Struct(p); err != nil {
		return Customer{}, translate(err)
	}
	return Customer{
		FirstName:  *p.FirstName,
		LastName:   *p.LastName,
		Email:      *p.Email,
		Subscribed: *p.Subscribed,
		Address: Address{
			Address1: *p.Address.Address1,
			Address2: *p.Address.Address2,
			City:     *p.Address.City,
			Province: *p.Address.Province,
			Country:  *p.Address.Country,
			Zip:      *p.Address.Zip,
		},
	}, nil
}

// translate reports the first failing field, in declaration order.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError(badDataMsg)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return newValidationError("Invalid customer: missing " + fe.Field())
	case "max":
		return newValidationError(fmt.Sprintf("Invalid customer: %s must not exceed %s characters", fe.Field(), fe.Param()))
	default:
		return newValidationError(fmt.Sprintf("Invalid customer: %s is invalid", fe.Field()))
	}
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jmehdipour/customers-api/internal/config"
	"github.com/jmehdipour/customers-api/internal/events"
	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/jmehdipour/customers-api/internal/service/customers"
	. "github.com/smartystreets/goconvey/convey"
)

const johnJSON = `{
	"firstname": "John",
	"lastname": "Doe",
	"email": "fake1@email.com",
	"subscribed": true,
	"address": {
		"address1": "123 Main St",
		"address2": "1B",
		"city": "New York",
		"province": "NY",
		"country": "USA",
		"zip": "12310"
	}
}`

type testServer struct {
	h http.Handler
}

func newTestServer(cfg config.Config) *testServer {
	svc := customers.New(repository.NewMemoryCustomersRepository(), nil, events.NopPublisher{})
	return &testServer{h: NewServer(cfg, svc, nil).Handler()}
}

func (s *testServer) do(method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(body string) model.Customer {
	rec := s.do(http.MethodPost, "/customers", "application/json", body)
	So(rec.Code, ShouldEqual, http.StatusCreated)
	var c model.Customer
	So(json.Unmarshal(rec.Body.Bytes(), &c), ShouldBeNil)
	return c
}

func decodeError(rec *httptest.ResponseRecorder) errorBody {
	var e errorBody
	So(json.Unmarshal(rec.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestCustomersAPI(t *testing.T) {
	Convey("Given a server over the memory backend", t, func() {
		s := newTestServer(config.Config{})

		Convey("When the index is requested", func() {
			rec := s.do(http.MethodGet, "/", "", "")
			var body map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["name"], ShouldEqual, "Customer Demo REST API Service")
			So(body["version"], ShouldEqual, "1.0")
			So(body["paths"], ShouldEqual, "http://example.com/customers")
		})

		Convey("When a customer is created from JSON", func() {
			rec := s.do(http.MethodPost, "/customers", "application/json; charset=utf-8", johnJSON)

			Convey("Then 201 is returned with a Location header", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var c model.Customer
				So(json.Unmarshal(rec.Body.Bytes(), &c), ShouldBeNil)
				So(c.ID, ShouldNotBeEmpty)
				So(c.FirstName, ShouldEqual, "John")
				So(rec.Header().Get("Location"), ShouldEqual, "http://example.com/customers/"+c.ID)

				Convey("And it can be read back identically", func() {
					got := s.do(http.MethodGet, "/customers/"+c.ID, "", "")
					So(got.Code, ShouldEqual, http.StatusOK)
					var back model.Customer
					So(json.Unmarshal(got.Body.Bytes(), &back), ShouldBeNil)
					So(back, ShouldResemble, c)
				})
			})
		})

		Convey("When a customer is created from a form", func() {
			form := url.Values{
				"firstname": {"Jane"}, "lastname": {"Roe"}, "email": {"jane@email.com"},
				"subscribed": {"false"}, "address1": {"1 Elm"}, "address2": {""},
				"city": {"Toronto"}, "province": {"ON"}, "country": {"Canada"}, "zip": {"M5V"},
			}
			rec := s.do(http.MethodPost, "/customers", "application/x-www-form-urlencoded", form.Encode())

			So(rec.Code, ShouldEqual, http.StatusCreated)
			var c model.Customer
			So(json.Unmarshal(rec.Body.Bytes(), &c), ShouldBeNil)
			So(c.Subscribed, ShouldBeFalse)
			So(c.Address.City, ShouldEqual, "Toronto")
		})

		Convey("When the create body is missing a field", func() {
			body := strings.Replace(johnJSON, `"lastname": "Doe",`, "", 1)
			rec := s.do(http.MethodPost, "/customers", "application/json", body)

			Convey("Then 400 carries the validation message", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				e := decodeError(rec)
				So(e.Status, ShouldEqual, http.StatusBadRequest)
				So(e.Error, ShouldEqual, "Bad Request")
				So(e.Message, ShouldEqual, "Invalid customer: missing lastname")
			})
		})

		Convey("When the create body is not JSON", func() {
			rec := s.do(http.MethodPost, "/customers", "application/json", "not json")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Message, ShouldEqual, "Invalid customer: body of request contained bad or no data")
		})

		Convey("When the create body exceeds the size limit", func() {
			body := `{"firstname": "` + strings.Repeat("a", 1<<20) + `"}`
			rec := s.do(http.MethodPost, "/customers", "application/json", body)

			So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(decodeError(rec).Status, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("When create has no Content-Type", func() {
			So(s.do(http.MethodPost, "/customers", "", johnJSON).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When create uses an unsupported media type", func() {
			rec := s.do(http.MethodPost, "/customers", "text/plain", johnJSON)
			So(rec.Code, ShouldEqual, http.StatusUnsupportedMediaType)
			So(decodeError(rec).Error, ShouldEqual, "Unsupported Media Type")
		})

		Convey("When an unknown id is read", func() {
			rec := s.do(http.MethodGet, "/customers/0", "", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(rec).Message, ShouldEqual, "Customer with id '0' was not found.")
		})

		Convey("When a customer exists", func() {
			c := s.create(johnJSON)

			Convey("Then PUT overwrites it and keeps the path id", func() {
				body := strings.Replace(johnJSON, "fake1@email.com", "new@email.com", 1)
				body = strings.Replace(body, "{", `{"id": "999",`, 1)
				rec := s.do(http.MethodPut, "/customers/"+c.ID, "application/json", body)

				So(rec.Code, ShouldEqual, http.StatusOK)
				var up model.Customer
				So(json.Unmarshal(rec.Body.Bytes(), &up), ShouldBeNil)
				So(up.ID, ShouldEqual, c.ID)
				So(up.Email, ShouldEqual, "new@email.com")
			})

			Convey("Then PUT with a form body is unsupported", func() {
				rec := s.do(http.MethodPut, "/customers/"+c.ID, "application/x-www-form-urlencoded", "firstname=x")
				So(rec.Code, ShouldEqual, http.StatusUnsupportedMediaType)
			})

			Convey("Then PUT with a bad body is a bad request", func() {
				rec := s.do(http.MethodPut, "/customers/"+c.ID, "application/json", `{"firstname": "x"}`)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then unsubscribe clears the flag", func() {
				rec := s.do(http.MethodPut, "/customers/"+c.ID+"/unsubscribe", "", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got model.Customer
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.Subscribed, ShouldBeFalse)
			})

			Convey("Then the address is returned on its own", func() {
				rec := s.do(http.MethodGet, "/customers/"+c.ID+"/address", "", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var a model.Address
				So(json.Unmarshal(rec.Body.Bytes(), &a), ShouldBeNil)
				So(a, ShouldResemble, c.Address)
			})

			Convey("Then DELETE removes it from listings", func() {
				So(s.do(http.MethodDelete, "/customers/"+c.ID, "", "").Code, ShouldEqual, http.StatusNoContent)
				So(s.do(http.MethodGet, "/customers/"+c.ID, "", "").Code, ShouldEqual, http.StatusNotFound)

				Convey("And deleting again is still 204", func() {
					So(s.do(http.MethodDelete, "/customers/"+c.ID, "", "").Code, ShouldEqual, http.StatusNoContent)
				})
			})

			Convey("Then reset removes everything", func() {
				s.create(strings.Replace(johnJSON, "John", "Jim", 1))
				So(s.do(http.MethodDelete, "/customers/reset", "", "").Code, ShouldEqual, http.StatusNoContent)

				rec := s.do(http.MethodGet, "/customers", "", "")
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When unknown ids are used on sub-resources", func() {
			So(s.do(http.MethodPut, "/customers/77", "application/json", johnJSON).Code, ShouldEqual, http.StatusNotFound)
			So(s.do(http.MethodPut, "/customers/77/unsubscribe", "", "").Code, ShouldEqual, http.StatusNotFound)
			So(s.do(http.MethodGet, "/customers/77/address", "", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When listing with filters", func() {
			s.create(johnJSON)
			s.create(strings.Replace(strings.Replace(johnJSON, "John", "Jane", 1), "New York", "Boston", 1))
			s.create(strings.Replace(strings.Replace(johnJSON, "John", "Jim", 1), `"subscribed": true`, `"subscribed": false`, 1))

			list := func(q string) []model.Customer {
				rec := s.do(http.MethodGet, "/customers"+q, "", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var out []model.Customer
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				return out
			}

			So(len(list("")), ShouldEqual, 3)
			So(len(list("?city=Boston")), ShouldEqual, 1)
			So(list("?firstname=Jim")[0].Subscribed, ShouldBeFalse)
			So(len(list("?subscribed=true")), ShouldEqual, 2)
			So(len(list("?subscribed=0")), ShouldEqual, 1)
			So(len(list("?lastname=Doe&city=New+York")), ShouldEqual, 2)
			So(list("?email=nobody@email.com"), ShouldBeEmpty)
		})

		Convey("When a method is not allowed", func() {
			rec := s.do(http.MethodPatch, "/customers/1", "application/json", "{}")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			e := decodeError(rec)
			So(e.Status, ShouldEqual, http.StatusMethodNotAllowed)
			So(e.Error, ShouldEqual, "Method Not Allowed")
		})

		Convey("When a route does not exist", func() {
			rec := s.do(http.MethodGet, "/nowhere", "", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(rec).Status, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the audit history is disabled", func() {
			c := s.create(johnJSON)
			So(s.do(http.MethodGet, "/customers/"+c.ID+"/events", "", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When health is probed", func() {
			rec := s.do(http.MethodGet, "/healthz", "", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "ok")
		})
	})

	Convey("Given an admin key is configured", t, func() {
		cfg := config.Config{HTTP: config.HTTPConfig{AdminAPIKey: "s3cret"}}
		s := newTestServer(cfg)

		Convey("Then reset requires it", func() {
			rec := s.do(http.MethodDelete, "/customers/reset", "", "")
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(decodeError(rec).Message, ShouldEqual, "missing api key")

			So(s.do(http.MethodDelete, "/customers/reset", "", "", "X-API-Key", "s3cret").Code, ShouldEqual, http.StatusNoContent)
		})
	})
}

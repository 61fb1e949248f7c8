package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/service/customers"
	"github.com/labstack/echo/v4"
)

const (
	serviceName      = "Customer Demo REST API Service"
	serviceVersion   = "1.0"
	routeGetCustomer = "get-customer"
	maxBodySize      = "1M"
)

func indexHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
			"paths":   absoluteURL(c, "/customers"),
		})
	}
}

func listCustomersHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := svc.List(c.Request().Context(), model.FilterFromQuery(c.QueryParams()))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func createCustomerHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := customerFromRequest(c, true)
		if err != nil {
			return err
		}
		created, err := svc.Create(c.Request().Context(), in)
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderLocation, absoluteURL(c, c.Echo().Reverse(routeGetCustomer, created.ID)))
		return c.JSON(http.StatusCreated, created)
	}
}

func getCustomerHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cu, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func updateCustomerHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := customerFromRequest(c, false)
		if err != nil {
			return err
		}
		updated, err := svc.Update(c.Request().Context(), c.Param("id"), in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteCustomerHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func unsubscribeCustomerHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cu, err := svc.Unsubscribe(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func customerAddressHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr, err := svc.Address(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, addr)
	}
}

func resetCustomersHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := svc.Reset(c.Request().Context()); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func customerEventsHandler(svc *customers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		id := c.Param("id")
		evs, err := svc.History(c.Request().Context(), id, limit, offset)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, map[string]any{
			"customer_id": id,
			"limit":       limit,
			"offset":      offset,
			"count":       len(evs),
			"results":     evs,
		})
	}
}

// customerFromRequest decodes a JSON body, or a urlencoded form when allowForm is set.
// A request without Content-Type is a bad request; any other media type is unsupported.
func customerFromRequest(c echo.Context, allowForm bool) (model.Customer, error) {
	raw := c.Request().Header.Get(echo.HeaderContentType)
	if raw == "" {
		return model.Customer{}, echo.NewHTTPError(http.StatusBadRequest, "Content-Type must be set")
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return model.Customer{}, echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type "+raw+" is not valid")
	}

	switch {
	case mediaType == echo.MIMEApplicationJSON:
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return model.Customer{}, he
			}
			return model.Customer{}, echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
		}
		return model.Deserialize(body)
	case allowForm && mediaType == echo.MIMEApplicationForm:
		form, err := c.FormParams()
		if err != nil {
			return model.Customer{}, echo.NewHTTPError(http.StatusBadRequest, "could not parse form body")
		}
		return model.CustomerFromForm(form)
	case allowForm:
		return model.Customer{}, echo.NewHTTPError(http.StatusUnsupportedMediaType,
			"Content-Type must be "+echo.MIMEApplicationJSON+" or "+echo.MIMEApplicationForm)
	default:
		return model.Customer{}, echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type must be "+echo.MIMEApplicationJSON)
	}
}

func absoluteURL(c echo.Context, path string) string {
	return c.Scheme() + "://" + c.Request().Host + path
}

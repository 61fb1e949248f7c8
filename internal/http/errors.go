package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/service/customers"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := classify(err)
	switch {
	case code >= http.StatusInternalServerError:
		logger.Log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	default:
		logger.Log.Warn(msg, zap.Int("status", code))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Status: code, Error: http.StatusText(code), Message: msg})
}

func classify(err error) (int, string) {
	var (
		verr *model.DataValidationError
		nf   *customers.NotFoundError
		he   *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		if s, ok := he.Message.(string); ok {
			return he.Code, s
		}
		return he.Code, fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}

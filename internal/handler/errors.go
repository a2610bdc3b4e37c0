package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/service"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func statusFor(code service.Code) int {
	switch code {
	case service.CodeRateLimited:
		return http.StatusTooManyRequests
	case service.CodeStoreUnavailable, "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError renders a service error.  Internal failures are reported as a
// generic internal_error; the cause stays in the server log.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Code == service.CodeStoreUnavailable {
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
	return c.JSON(statusFor(se.Code), errorBody{
		Error:   string(se.Code),
		Message: se.Message,
		Fields:  se.Fields,
	})
}

// HTTPErrorHandler renders framework errors (unknown route, wrong method,
// panics caught by Recover) in the same JSON shape as handler errors.
func HTTPErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := "Internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		code := "bad_request"
		switch {
		case status == http.StatusMethodNotAllowed:
			code, msg = "method_not_allowed", "Method not allowed"
		case status == http.StatusNotFound:
			code = "not_found"
		case status >= http.StatusInternalServerError:
			code, msg = "internal_error", "Internal server error"
			if logger != nil {
				logger.Errorj(log.JSON{"event": "http_error", "path": c.Path(), "error": err.Error()})
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorBody{Error: code, Message: msg})
		}
		if err != nil && logger != nil {
			logger.Error(err)
		}
	}
}

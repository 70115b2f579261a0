package middleware

import (
	"errors"
	"net/http"

	"electroCare/pkg/logger"
	jsonres "electroCare/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler answers errors that escaped a handler: echo routing errors
// keep their status, anything else becomes a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := jsonres.Error("INTERNAL_ERROR", "Internal server error", nil)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg := http.StatusText(code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		body = jsonres.Error(errorCode(code), msg, nil)
	} else {
		logger.Error("Unhandled error", err, "method", c.Request().Method, "path", c.Path())
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		logger.Error("Failed to write error response", writeErr)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	}

	if status >= 500 {
		return "INTERNAL_ERROR"
	}

	return "ERROR"
}

package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"climatrack/internal/errors"
)

// NewHTTPErrorHandler renders every failure as {"error": "...", "code": "..."}.
// Service errors are mapped by kind; causes of 5xx responses are logged and
// never sent to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err)
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", status).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error) (int, errors.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch msg := he.Message.(type) {
		case errors.ErrorResponse:
			return he.Code, msg
		case string:
			if he.Code >= http.StatusInternalServerError {
				return he.Code, errors.ErrorResponse{Error: http.StatusText(he.Code), Code: statusCode(he.Code)}
			}
			return he.Code, errors.ErrorResponse{Error: msg, Code: statusCode(he.Code)}
		default:
			return he.Code, errors.ErrorResponse{Error: fmt.Sprint(msg), Code: statusCode(he.Code)}
		}
	}

	mapped := errors.MapErrorToHTTP(err)
	return mapped.StatusCode, mapped.ToErrorResponse()
}

// statusCode turns an HTTP status into an error code, e.g. 404 -> NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return errors.KindInternal.String()
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

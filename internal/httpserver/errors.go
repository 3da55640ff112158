package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mentor_portal/internal/transport"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
)

// ErrorHandler renders every error as {success:false, error, errors?}.
// Messages of 5xx errors are replaced with a generic one.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	var fields map[string]string

	var httpErr *echo.HTTPError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		code = apperrors.Status(appErr)
		message = appErr.Message
		fields = appErr.Fields
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	default:
		code = apperrors.Status(err)
	}

	l := logging.FromContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		l.Error("internal_server_error", "status", code, "error", err.Error())
		message = "Internal server error"
		fields = nil
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, transport.ErrorEnvelope{Success: false, Error: message, Errors: fields})
	}
	if err != nil {
		l.Error("error_response_failed", "error", err)
	}
}

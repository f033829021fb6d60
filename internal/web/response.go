package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/urbanplantlife/store/internal/logging"
)

// Response is the uniform envelope every endpoint answers with.
// Status is "success" or "error"; the HTTP code carries the category.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func OK(c echo.Context, code int, data any, message string) error {
	return c.JSON(code, Response{Status: "success", Data: data, Message: message})
}

func Fail(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{Status: "error", Message: message})
}

func Validation(c echo.Context, message string) error {
	return Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c echo.Context, message string) error {
	return Fail(c, http.StatusUnauthorized, message)
}

func Forbidden(c echo.Context, message string) error {
	return Fail(c, http.StatusForbidden, message)
}

func NotFound(c echo.Context, message string) error {
	return Fail(c, http.StatusNotFound, message)
}

func Conflict(c echo.Context, message string) error {
	return Fail(c, http.StatusConflict, message)
}

func ServerError(c echo.Context, err error) error {
	logging.FromContext(c.Request().Context()).Error("internal error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Path(),
	)
	return Fail(c, http.StatusInternalServerError, "Internal server error.")
}

// ErrorHandler renders stray errors (middleware failures, c.Validate
// rejections, panics caught by Recover) in the same envelope the
// handlers use. Unexpected errors are logged and masked as generic 500s.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal server error."

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = fmt.Sprint(he.Message)
		} else {
			log.Error("unhandled error",
				"err", err,
				"method", c.Request().Method,
				"path", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		if err := Fail(c, code, message); err != nil {
			log.Error("error response write failed", "err", err)
		}
	}
}

package editor

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	msgNoImage              = "No image uploaded"
	msgEditorFailed         = "Image editor failed"
	msgSubscriptionRequired = "Subscription required"
	msgUnauthorized         = "Unauthorized"
	msgInvalidData          = "The given data was invalid"
	msgRouteNotFound        = "Route not found"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type httpError struct {
	statusCode int
	message    string
	reason     string
	details    map[string]string
	cause      error
}

func (e *httpError) Error() string {
	return fmt.Sprintf("[%d] %s", e.statusCode, e.message)
}

func (e *httpError) ErrorWithDetails() string {
	if e.cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.statusCode, e.message, e.cause)
	}

	return fmt.Sprintf("[%d] %s %v", e.statusCode, e.message, e.details)
}

func (e *httpError) Unwrap() error {
	return e.cause
}

func (e *httpError) response() errorResponse {
	return errorResponse{Error: e.message, Message: e.reason, Details: e.details}
}

func editorFailed(err error) *httpError {
	return &httpError{
		statusCode: http.StatusInternalServerError,
		message:    msgEditorFailed,
		reason:     err.Error(),
		cause:      err,
	}
}

func toHTTPError(err error) *httpError {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		message := http.StatusText(echoErr.Code)
		if echoErr.Code == http.StatusNotFound {
			message = msgRouteNotFound
		} else if m, ok := echoErr.Message.(string); ok && m != "" {
			message = m
		}

		return &httpError{statusCode: echoErr.Code, message: message, cause: echoErr.Internal}
	}

	return &httpError{
		statusCode: http.StatusInternalServerError,
		message:    http.StatusText(http.StatusInternalServerError),
		cause:      err,
	}
}

func makeErrorHandler(lg *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := toHTTPError(err)

		if lg != nil {
			entry := lg.WithFields(logrus.Fields{
				"method": c.Request().Method,
				"uri":    c.Request().RequestURI,
				"status": httpErr.statusCode,
			})

			if httpErr.statusCode >= http.StatusInternalServerError {
				entry.WithError(err).Errorln(httpErr.ErrorWithDetails())
			} else {
				entry.Debugln(httpErr.ErrorWithDetails())
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.statusCode)
		} else {
			writeErr = c.JSON(httpErr.statusCode, httpErr.response())
		}

		if writeErr != nil && lg != nil {
			lg.WithError(writeErr).Errorln("could not write error response")
		}
	}
}

package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hiroakis/host-management-app/internal/inventory"
)

// Response messages kept from the legacy API. Clients match on them.
const (
	MessageBadRequest       = "Check the format you requested"
	MessageNotFound         = "Not found"
	MessageMethodNotAllowed = "Method not allowed"
	MessageInternal         = "Could not complete your request. may be duprecated."
)

// APIError represents a structured API error with HTTP status code.
type APIError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// NewAPIError creates a new API error.
func NewAPIError(code int, message string, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// BadRequestError reports a malformed request.
func BadRequestError(details string) *APIError {
	return NewAPIError(http.StatusBadRequest, MessageBadRequest, details)
}

// statusForKind maps an inventory error kind to an HTTP status. The legacy
// API reported conflicts as 500.
func statusForKind(kind inventory.Kind, legacy bool) int {
	switch kind {
	case inventory.KindInvalidInput:
		return http.StatusBadRequest
	case inventory.KindNotFound:
		return http.StatusNotFound
	case inventory.KindConflict:
		if legacy {
			return http.StatusInternalServerError
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewHTTPErrorHandler returns an Echo error handler rendering legacy bodies.
func NewHTTPErrorHandler(legacy bool, logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already sent
		if c.Response().Committed {
			return
		}

		apiErr := toAPIError(err, legacy)

		if apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusConflict {
			var ie *inventory.Error
			attrs := []any{
				slog.Int("status", apiErr.Code),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			}
			if errors.As(err, &ie) {
				attrs = append(attrs, slog.String("op", ie.Op), slog.String("kind", ie.Kind.String()))
			}
			logger.Warn("request failed", attrs...)
		}

		// Don't expose internal errors in production
		if !c.Echo().Debug {
			apiErr.Details = ""
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(apiErr.Code)
		} else {
			err = c.JSON(apiErr.Code, apiErr)
		}
		if err != nil {
			logger.Error("failed to write error response", slog.String("error", err.Error()))
		}
	}
}

func toAPIError(err error, legacy bool) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return &APIError{Code: ae.Code, Message: ae.Message, Details: ae.Details}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return &APIError{
			Code:    he.Code,
			Message: getHTTPMessage(he.Code),
			Details: fmt.Sprintf("%v", he.Message),
		}
	}

	var ie *inventory.Error
	if errors.As(err, &ie) {
		code := statusForKind(ie.Kind, legacy)
		return &APIError{Code: code, Message: getHTTPMessage(code), Details: ie.Error()}
	}

	return &APIError{
		Code:    http.StatusInternalServerError,
		Message: MessageInternal,
		Details: err.Error(),
	}
}

// getHTTPMessage returns the client-facing message for HTTP status codes.
func getHTTPMessage(code int) string {
	messages := map[int]string{
		http.StatusBadRequest:            MessageBadRequest,
		http.StatusNotFound:              MessageNotFound,
		http.StatusMethodNotAllowed:      MessageMethodNotAllowed,
		http.StatusConflict:              MessageInternal,
		http.StatusRequestEntityTooLarge: MessageBadRequest,
		http.StatusUnsupportedMediaType:  MessageBadRequest,
		http.StatusTooManyRequests:       "Too many requests",
		http.StatusInternalServerError:   MessageInternal,
		http.StatusServiceUnavailable:    "Service unavailable",
	}

	if msg, ok := messages[code]; ok {
		return msg
	}
	return http.StatusText(code)
}

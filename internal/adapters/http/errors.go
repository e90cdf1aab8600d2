package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/pkg/geospatial"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	Param     string `json:"param,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errFromDomain maps a domain error onto a response: caller mistakes are
// 400, missing sources 404, unreadable formats 422 and timeouts 504.
func errFromDomain(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals("requestid").(string)
	apiErr := APIError{Message: err.Error(), RequestID: reqID}

	var pe *domain.ParamError
	if errors.As(err, &pe) {
		apiErr.Param = pe.Param
	}

	switch {
	case domain.IsInputError(err), errors.Is(err, geospatial.ErrTooFewSamples):
		apiErr.Status, apiErr.Code = fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrRead):
		apiErr.Status, apiErr.Code = fiber.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrFormat):
		apiErr.Status, apiErr.Code = fiber.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, context.DeadlineExceeded):
		apiErr.Status, apiErr.Code = fiber.StatusGatewayTimeout, "timeout"
	default:
		apiErr.Status, apiErr.Code = fiber.StatusInternalServerError, "internal_error"
		LoggerFromCtx(c.UserContext()).ErrorContext(c.UserContext(), "request failed", "error", err)
	}
	return c.Status(apiErr.Status).JSON(apiErr)
}

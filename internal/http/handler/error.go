package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"doclife/internal/artifact"
	"doclife/internal/http/middleware"
	"doclife/internal/logging"
	"doclife/internal/retention"
	"doclife/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const loggerLocalKey = "handler_logger"

// withLogger exposes logger to handlers through Locals.
func withLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(loggerLocalKey, logger)
		return c.Next()
	}
}

func loggerFromCtx(c *fiber.Ctx) *slog.Logger {
	if l, ok := c.Locals(loggerLocalKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.Discard()
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a DocumentService error kind to a status and code.
// Messages of client errors are passed through; anything else becomes a 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var lockErr *retention.LockError
	switch {
	case errors.Is(err, service.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, service.ErrVersionOutOfRange):
		return writeError(c, fiber.StatusBadRequest, "VERSION_OUT_OF_RANGE", err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.As(err, &lockErr):
		return writeError(c, fiber.StatusForbidden, "RETENTION_LOCKED", lockErr.Error())
	case errors.Is(err, service.ErrTenantMismatch):
		return writeError(c, fiber.StatusForbidden, "TENANT_MISMATCH", "document belongs to another tenant")
	case errors.Is(err, service.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	default:
		loggerFromCtx(c).Error("request failed",
			slog.String("request_id", requestIDFromCtx(c)),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// writeArtifactError maps signed-link failures.
func writeArtifactError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, artifact.ErrInvalidSignature):
		return writeError(c, fiber.StatusForbidden, "INVALID_SIGNATURE", "invalid download signature")
	case errors.Is(err, artifact.ErrLinkExpired):
		return writeError(c, fiber.StatusGone, "LINK_EXPIRED", "download link expired")
	case errors.Is(err, artifact.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
	default:
		return writeServiceError(c, err)
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := ""
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
			message = e.Message
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", message)
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

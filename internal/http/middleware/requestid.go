package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doclife/internal/audit"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is the fiber locals key holding the request ID.
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 128
)

// RequestID tags every request with an ID, reusing a well-formed incoming
// X-Request-ID, and puts the caller's IP and User-Agent on the user context
// for the audit trail.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		meta := audit.RequestMeta{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
		c.SetUserContext(audit.WithRequestMeta(c.UserContext(), meta))
		return c.Next()
	}
}

// validRequestID accepts short printable ASCII so a client cannot inject
// arbitrary bytes into log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// requestID returns the ID stored by RequestID, or "" outside it.
func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDLocalKey).(string)
	return id
}

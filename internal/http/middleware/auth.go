package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"doclife/internal/acl"
	"doclife/internal/auth"
)

// PrincipalLocalKey stores the authenticated principal in Fiber's locals.
const PrincipalLocalKey = "principal"

// TokenParser turns a bearer token into a principal.
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// Authenticate verifies the Bearer token and stores the principal both in
// locals and on the user context, where the service layer reads it.
func Authenticate(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		p, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(PrincipalLocalKey, p)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), p))
		return c.Next()
	}
}

// Require rejects principals whose role is not allowed for op.
// It must run after Authenticate.
func Require(op acl.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := auth.PrincipalFromContext(c.UserContext())
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		if !acl.Permits(op, p) {
			return fiber.NewError(fiber.StatusForbidden, "role not allowed")
		}
		return c.Next()
	}
}

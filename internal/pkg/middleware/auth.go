package middleware

import (
	"strings"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// TokenParser validates a bearer token
type TokenParser interface {
	Parse(token string) (usercontext.Principal, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}

// extractToken reads "Authorization: Bearer <token>" first, then the token cookie
func extractToken(c *fiber.Ctx) string {
	authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Cookies(usercontext.CookieToken))
}

// RequireAuth rejects requests without a valid token and stores the principal in Locals.
func RequireAuth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return unauthorized(c, "authentication required")
		}
		p, err := parser.Parse(token)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}
		usercontext.SetPrincipal(c, p)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := usercontext.GetPrincipal(c)
		if !p.IsAuthenticated() {
			return unauthorized(c, "authentication required")
		}
		if p.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"message": "insufficient permissions",
			})
		}
		return c.Next()
	}
}

// RequireAdmin is RequireRole(ADMIN)
var RequireAdmin = RequireRole(usercontext.RoleAdmin)

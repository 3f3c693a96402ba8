package usercontext

import "github.com/gofiber/fiber/v2"

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != 0
}

// GetPrincipal retrieves the principal from fiber context.
// Returns an anonymous principal if none is set
func GetPrincipal(c *fiber.Ctx) Principal {
	if p, ok := c.Locals(KeyPrincipal).(Principal); ok {
		return p
	}
	return Principal{}
}

func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(KeyPrincipal, p)
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetPrincipal(c).UserID
}

package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/account"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
)

// AuthController serves registration, login and user administration
type AuthController struct {
	accounts     *account.Service
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthController(accounts *account.Service, tokenTTL time.Duration, secureCookie bool) *AuthController {
	return &AuthController{accounts: accounts, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	account.RegisterInput
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates an account. Only the first administrator may self-register as ADMIN.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	in := req.RegisterInput
	in.Name, in.Email, in.Password = req.Name, req.Email, req.Password

	user, err := ac.accounts.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "user registered successfully",
		"user":    user,
	})
}

// HandleLogin returns a bearer token and also sets it as an HTTP-only cookie
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := ac.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     usercontext.CookieToken,
		Value:    res.Token,
		Expires:  time.Now().Add(ac.tokenTTL),
		HTTPOnly: true,
		Secure:   ac.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(res)
}

func (ac *AuthController) HandleProfile(c *fiber.Ctx) error {
	user, err := ac.accounts.Profile(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleContact is public: residents need the society admin's contact before they can log in.
func (ac *AuthController) HandleContact(c *fiber.Ctx) error {
	admin, err := ac.accounts.AdminContact(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"name":  admin.Name,
		"email": admin.Email,
		"phone": admin.Phone,
	})
}

func (ac *AuthController) HandleListUsers(c *fiber.Ctx) error {
	users, err := ac.accounts.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (ac *AuthController) HandleGetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	user, err := ac.accounts.Profile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (ac *AuthController) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in account.UpdateUserInput
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	user, err := ac.accounts.UpdateUser(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "user updated successfully",
		"user":    user,
	})
}

func (ac *AuthController) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if id == usercontext.GetUserID(c) {
		return respondError(c, apperr.InvalidInput("you cannot delete your own account"))
	}
	if err := ac.accounts.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted successfully"})
}

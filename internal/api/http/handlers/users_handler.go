package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/api/dto"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// Accounts is the account workflow used by UsersHandler.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, input service.LoginInput) (*service.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	DeleteAccount(ctx context.Context, userID string) error
}

// CookieOptions control the session cookie set for browser clients.
type CookieOptions struct {
	Name   string
	Secure bool
}

// UsersHandler exposes auth endpoints for end-users.
type UsersHandler struct {
	accounts Accounts
	cookie   CookieOptions
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts Accounts, cookie CookieOptions) *UsersHandler {
	return &UsersHandler{accounts: accounts, cookie: cookie}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful!",
		"user":    dto.NewUserView(session.User),
		"auth":    dto.AuthResponse{Token: session.Token.Token, ExpiresAt: session.Token.ExpiresAt},
	})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.accounts.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful!",
		"user":    dto.NewUserView(session.User),
		"auth":    dto.AuthResponse{Token: session.Token.Token, ExpiresAt: session.Token.ExpiresAt},
	})
}

// Logout handles POST /auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("User not logged in.")
	}
	if err := h.accounts.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"success": true, "message": "You have been logged out."})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("User not logged in.")
	}
	return c.JSON(fiber.Map{"success": true, "user": dto.NewUserView(principal.User)})
}

// DeleteAccount handles DELETE /auth/account.
func (h *UsersHandler) DeleteAccount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("User not logged in.")
	}
	if err := h.accounts.DeleteAccount(c.UserContext(), principal.User.ID); err != nil {
		return err
	}
	if err := h.accounts.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"success": true, "message": "Account deleted."})
}

func (h *UsersHandler) setSessionCookie(c *fiber.Ctx, session *service.Session) {
	if h.cookie.Name == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token.Token,
		Path:     "/",
		Expires:  session.Token.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *UsersHandler) clearSessionCookie(c *fiber.Ctx) {
	if h.cookie.Name == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

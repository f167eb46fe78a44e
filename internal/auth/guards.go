package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// RequireUser fails closed when no authenticated user reached the handler.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized(notLoggedIn)
		}
		if _, ok := UserIDFromContext(c.UserContext()); !ok {
			return apperrors.NewUnauthorized(notLoggedIn)
		}
		return c.Next()
	}
}

// RequireTriggerKey guards machine-triggered endpoints with a shared key.
// An empty key disables the check.
func RequireTriggerKey(header, key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}
		if subtle.ConstantTimeCompare([]byte(c.Get(header)), []byte(key)) != 1 {
			return apperrors.NewForbidden("invalid trigger key")
		}
		return c.Next()
	}
}

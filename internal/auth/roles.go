package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireRole ensures the principal holds at least one of the allowed roles.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if principal.HasRole(role) {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "insufficient role")
	}
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

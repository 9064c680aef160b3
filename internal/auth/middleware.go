package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller as asserted by its access token.
type Principal struct {
	Email  string
	Roles  []string
	Claims domain.ClaimSet
}

// HasRole reports whether the principal carries the role claim.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenIssuer
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	email, ok := claims.First(domain.ClaimEmail)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		Email:  email,
		Roles:  claims.Values(domain.ClaimRole),
		Claims: claims,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

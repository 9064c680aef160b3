package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 64

var (
	// ErrInvalidToken covers bad signatures, algorithm mismatches and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedClaim is returned when a ClaimSet carries a type tokens cannot encode.
	ErrUnsupportedClaim = errors.New("unsupported claim type")
)

// Claims describes the JWT payload.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies access tokens and mints refresh tokens.
type TokenIssuer struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds an HS256 issuer from auth configuration.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	accessTTL := cfg.AccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		method:     jwt.SigningMethodHS256,
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		ti.now = now
	}
	return ti
}

// NewTokenID returns a fresh value for the token identifier claim.
func NewTokenID() string {
	return uuid.NewString()
}

// Issue builds and signs an access token for the claim set.
func (ti *TokenIssuer) Issue(claims domain.ClaimSet) (domain.AccessToken, error) {
	now := ti.now()
	expiresAt := now.Add(ti.accessTTL)

	payload := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if ti.audience != "" {
		payload.Audience = jwt.ClaimStrings{ti.audience}
	}

	for _, c := range claims {
		switch c.Type {
		case domain.ClaimEmail:
			if payload.Email == "" {
				payload.Email = c.Value
			}
		case domain.ClaimTokenID:
			if payload.ID == "" {
				payload.ID = c.Value
			}
		case domain.ClaimRole:
			payload.Roles = append(payload.Roles, c.Value)
		default:
			return domain.AccessToken{}, fmt.Errorf("%w: %s", ErrUnsupportedClaim, c.Type)
		}
	}

	signed, err := jwt.NewWithClaims(ti.method, payload).SignedString(ti.secret)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return domain.AccessToken{Value: signed, ExpiresAt: time.Unix(expiresAt.Unix(), 0)}, nil
}

// IssueRefreshToken mints an opaque refresh token. Persisting it is the caller's job.
func (ti *TokenIssuer) IssueRefreshToken() (domain.RefreshToken, error) {
	value, err := GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	return domain.RefreshToken{Value: value, ExpiresAt: ti.now().Add(ti.refreshTTL)}, nil
}

// IntrospectExpired verifies signature and algorithm but skips expiry, issuer and
// audience checks. It is the only path that accepts an expired access token.
func (ti *TokenIssuer) IntrospectExpired(tokenStr string) (domain.ClaimSet, error) {
	return ti.parse(tokenStr,
		jwt.WithValidMethods([]string{ti.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
}

// Parse fully validates an access token, including expiry, issuer and audience.
func (ti *TokenIssuer) Parse(tokenStr string) (domain.ClaimSet, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ti.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}
	if ti.audience != "" {
		opts = append(opts, jwt.WithAudience(ti.audience))
	}
	return ti.parse(tokenStr, opts...)
}

func (ti *TokenIssuer) parse(tokenStr string, opts ...jwt.ParserOption) (domain.ClaimSet, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != ti.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}
	return claims.ClaimSet(), nil
}

// ClaimSet converts the payload back into ordered claims: email, token id, then roles.
func (c *Claims) ClaimSet() domain.ClaimSet {
	set := make(domain.ClaimSet, 0, 2+len(c.Roles))
	if c.Email != "" {
		set = append(set, domain.Claim{Type: domain.ClaimEmail, Value: c.Email})
	}
	if c.ID != "" {
		set = append(set, domain.Claim{Type: domain.ClaimTokenID, Value: c.ID})
	}
	for _, role := range c.Roles {
		set = append(set, domain.Claim{Type: domain.ClaimRole, Value: role})
	}
	return set
}

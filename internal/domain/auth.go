package domain

import "time"

// Claim types carried by access tokens.
const (
	ClaimEmail   = "email"
	ClaimTokenID = "jti"
	ClaimRole    = "roles"
)

// Claim is a single (type, value) assertion.
type Claim struct {
	Type  string
	Value string
}

// ClaimSet is an ordered list of claims. Duplicates are kept.
type ClaimSet []Claim

// First returns the first value of the given type.
func (cs ClaimSet) First(claimType string) (string, bool) {
	for _, c := range cs {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value of the given type in order.
func (cs ClaimSet) Values(claimType string) []string {
	values := make([]string, 0)
	for _, c := range cs {
		if c.Type == claimType {
			values = append(values, c.Value)
		}
	}
	return values
}

// AccessToken is a signed, self-contained assertion of a ClaimSet.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// RefreshToken is an opaque renewal secret with an absolute expiry.
type RefreshToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

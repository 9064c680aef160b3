package domain

import "time"

// Role names granted by the account lifecycle.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Account is the credential record of a registered user.
type Account struct {
	ID                    string
	Email                 string
	PasswordHash          string
	EmailConfirmed        bool
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasRefreshToken reports whether a renewal secret is bound to the account.
func (a *Account) HasRefreshToken() bool {
	return a.RefreshToken != "" && a.RefreshTokenExpiresAt != nil
}

// BindRefreshToken overwrites the single refresh slot.
func (a *Account) BindRefreshToken(token RefreshToken) {
	expiresAt := token.ExpiresAt
	a.RefreshToken = token.Value
	a.RefreshTokenExpiresAt = &expiresAt
}

// Profile holds the display data created alongside an account.
type Profile struct {
	AccountID string
	Name      string
	Email     string
	CreatedAt time.Time
}

// ActionPurpose scopes a single-use action token.
type ActionPurpose string

const (
	ActionEmailConfirmation ActionPurpose = "email_confirmation"
	ActionPasswordReset     ActionPurpose = "password_reset"
)

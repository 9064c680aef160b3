package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// LoginRequest payload for password login. The email is not format-checked so a
// malformed address fails like any other unknown one.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenRequest carries an access token, possibly expired, with its refresh token.
type TokenRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccessToken, validation.Required),
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// RegisterRequest payload for user and admin registration.
// Email format and password strength are enforced by the credential store.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ForgotPasswordRequest payload for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

// ResetPasswordRequest payload for redeeming a reset link.
type ResetPasswordRequest struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Code, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	Expiration   time.Time `json:"expiration"`
	Roles        []string  `json:"roles"`
	UserID       string    `json:"userId"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RenewResponse is returned by userid-from-token.
type RenewResponse struct {
	User  AccountResponse `json:"user"`
	Roles []string        `json:"roles"`
}

// StatusResponse acknowledges a state change.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PrincipalResponse echoes the caller's token claims.
type PrincipalResponse struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

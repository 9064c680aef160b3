// Package identity is the credential store consumed by the session lifecycle:
// account lookup and persistence, password verification, role membership and
// single-use action tokens for email confirmation and password reset.
package identity

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
)

// ErrNotFound is returned by lookups for absent accounts.
var ErrNotFound = errors.New("account not found")

// actionCodeBytes is the entropy of confirmation and reset codes.
const actionCodeBytes = 32

// Result error codes produced by the store.
const (
	CodeInvalidEmail   = "InvalidEmail"
	CodeDuplicateEmail = "DuplicateEmail"
	CodeInvalidToken   = "InvalidToken"
)

// Store is the credential store contract.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account, password string) (domain.Result, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, account *domain.Account) error
	VerifyPassword(ctx context.Context, account *domain.Account, password string) (bool, error)
	IsConfirmed(ctx context.Context, account *domain.Account) (bool, error)
	IsInRole(ctx context.Context, account *domain.Account, role string) (bool, error)
	GetRoles(ctx context.Context, account *domain.Account) ([]string, error)
	GenerateConfirmationToken(ctx context.Context, account *domain.Account) (string, error)
	GeneratePasswordResetToken(ctx context.Context, account *domain.Account) (string, error)
	VerifyConfirmationToken(ctx context.Context, account *domain.Account, code string) (bool, error)
	ConfirmEmail(ctx context.Context, account *domain.Account, code string) (domain.Result, error)
	ResetPassword(ctx context.Context, account *domain.Account, code, newPassword string) (domain.Result, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, name string) error
	AddToRole(ctx context.Context, account *domain.Account, role string) error
}

// Options tunes hashing cost, password policy and action token lifetime.
type Options struct {
	BcryptCost     int
	ActionTokenTTL time.Duration
	Policy         *auth.PasswordPolicy
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ActionTokenTTL <= 0 {
		o.ActionTokenTTL = 24 * time.Hour
	}
	if o.Policy == nil {
		o.Policy = auth.DefaultPasswordPolicy()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func validateEmail(email string) domain.Result {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return domain.Failed(domain.ResultError{
			Code:        CodeInvalidEmail,
			Description: "Email '" + email + "' is invalid.",
		})
	}
	return domain.Success
}

func duplicateEmail(email string) domain.Result {
	return domain.Failed(domain.ResultError{
		Code:        CodeDuplicateEmail,
		Description: "Email '" + email + "' is already taken.",
	})
}

func invalidToken() domain.Result {
	return domain.Failed(domain.ResultError{Code: CodeInvalidToken, Description: "Invalid token."})
}

func newActionCode() (string, error) {
	return auth.GenerateOpaqueToken(actionCodeBytes)
}

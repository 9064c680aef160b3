package auth

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-service/internal/domain"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// PasswordMatches reports whether plain matches hashed. Hash errors other than a
// mismatch are returned.
func PasswordMatches(hashed, plain string) (bool, error) {
	err := ComparePassword(hashed, plain)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

type passwordRule struct {
	code string
	rule validation.Rule
}

// PasswordPolicy checks a candidate password against every rule and reports all failures.
type PasswordPolicy struct {
	rules []passwordRule
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// DefaultPasswordPolicy requires six characters with a digit, a lowercase letter,
// an uppercase letter and a non-alphanumeric character. Passwords longer than bcrypt's
// input limit are rejected rather than failing at hash time.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{rules: []passwordRule{
		{"PasswordTooShort", validation.Length(6, 0).Error("Passwords must be at least 6 characters.")},
		{"PasswordTooLong", validation.Length(0, maxPasswordBytes).Error("Passwords must be at most 72 bytes.")},
		{"PasswordRequiresNonAlphanumeric", validation.Match(regexp.MustCompile(`[^a-zA-Z0-9]`)).Error("Passwords must have at least one non alphanumeric character.")},
		{"PasswordRequiresDigit", validation.Match(regexp.MustCompile(`[0-9]`)).Error("Passwords must have at least one digit ('0'-'9').")},
		{"PasswordRequiresLower", validation.Match(regexp.MustCompile(`[a-z]`)).Error("Passwords must have at least one lowercase ('a'-'z').")},
		{"PasswordRequiresUpper", validation.Match(regexp.MustCompile(`[A-Z]`)).Error("Passwords must have at least one uppercase ('A'-'Z').")},
	}}
}

// Validate returns a failed Result listing every broken rule, in rule order.
func (p *PasswordPolicy) Validate(password string) domain.Result {
	if password == "" {
		return domain.Failed(domain.ResultError{Code: "PasswordRequired", Description: "Password is required."})
	}
	var errs []domain.ResultError
	for _, r := range p.rules {
		if err := validation.Validate(password, r.rule); err != nil {
			errs = append(errs, domain.ResultError{Code: r.code, Description: err.Error()})
		}
	}
	return domain.Failed(errs...)
}

package dto

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequestValidate(t *testing.T) {
	require.NoError(t, LoginRequest{Email: "a@x.com", Password: "x"}.Validate())

	require.NoError(t, LoginRequest{Email: "nope", Password: "x"}.Validate())

	err := LoginRequest{}.Validate()
	require.Error(t, err)
	errs, ok := err.(validation.Errors)
	require.True(t, ok)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestTokenRequestValidate(t *testing.T) {
	require.NoError(t, TokenRequest{AccessToken: "a", RefreshToken: "r"}.Validate())
	err := TokenRequest{AccessToken: "a"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.(validation.Errors), "refreshToken")
}

func TestRegisterRequestLeavesPolicyToStore(t *testing.T) {
	require.NoError(t, RegisterRequest{Name: "Ann", Email: "not-an-email", Password: "weak"}.Validate())
	require.Error(t, RegisterRequest{Email: "a@x.com", Password: "Pw1!aa"}.Validate())
}

func TestResetPasswordRequestValidate(t *testing.T) {
	require.NoError(t, ResetPasswordRequest{ID: "id", Code: "c", Password: "p"}.Validate())
	err := ResetPasswordRequest{}.Validate()
	require.Error(t, err)
	assert.Len(t, err.(validation.Errors), 3)
}

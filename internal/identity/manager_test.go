package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

const validPassword = "Passw0rd!"

func newTestStore(t *testing.T) *Manager {
	t.Helper()
	return NewMemoryStore(Options{BcryptCost: bcrypt.MinCost})
}

func createAccount(t *testing.T, store *Manager, email string) *domain.Account {
	t.Helper()
	account := &domain.Account{Email: email}
	result, err := store.Create(context.Background(), account, validPassword)
	require.NoError(t, err)
	require.True(t, result.Succeeded(), result.Descriptions())
	return account
}

func TestCreateAssignsIDAndHashesPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	account := createAccount(t, store, "a@x.com")
	require.NotEmpty(t, account.ID)
	require.NotEqual(t, validPassword, account.PasswordHash)
	require.False(t, account.EmailConfirmed)

	found, err := store.FindByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	require.Equal(t, account.ID, found.ID)

	ok, err := store.VerifyPassword(ctx, found, validPassword)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.VerifyPassword(ctx, found, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	createAccount(t, store, "a@x.com")

	result, err := store.Create(context.Background(), &domain.Account{Email: "a@x.com"}, validPassword)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	require.Equal(t, CodeDuplicateEmail, result.Errors[0].Code)
}

func TestCreateReportsValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		codes    []string
	}{
		{"invalid email", "not-an-email", validPassword, []string{CodeInvalidEmail}},
		{"empty email", "", validPassword, []string{CodeInvalidEmail}},
		{"weak password", "a@x.com", "abc", []string{
			"PasswordTooShort",
			"PasswordRequiresNonAlphanumeric",
			"PasswordRequiresDigit",
			"PasswordRequiresUpper",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			result, err := store.Create(context.Background(), &domain.Account{Email: tt.email}, tt.password)
			require.NoError(t, err)
			require.False(t, result.Succeeded())

			codes := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.codes, codes)

			_, err = store.FindByEmail(context.Background(), tt.email)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFindReportsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.FindByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByID(ctx, "0b7f1c3e-8d0a-4c56-9a59-2f1e7e1c2a10")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePersistsRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	expiresAt := time.Now().Add(time.Hour)
	account.BindRefreshToken(domain.RefreshToken{Value: "r1", ExpiresAt: expiresAt})
	require.NoError(t, store.Update(ctx, account))

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, found.HasRefreshToken())
	require.Equal(t, "r1", found.RefreshToken)
	require.True(t, expiresAt.Equal(*found.RefreshTokenExpiresAt))

	// The stored copy must not alias the caller's account.
	account.RefreshToken = "mutated"
	found, err = store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "r1", found.RefreshToken)
}

func TestStaleSnapshotsOnlyWriteTheirOwnColumns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	loginView, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	resetView, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)

	confirmCode, err := store.GenerateConfirmationToken(ctx, account)
	require.NoError(t, err)
	resetCode, err := store.GeneratePasswordResetToken(ctx, account)
	require.NoError(t, err)

	loginView.BindRefreshToken(domain.RefreshToken{Value: "r1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, store.Update(ctx, loginView))

	result, err := store.ConfirmEmail(ctx, resetView, confirmCode)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	result, err = store.ResetPassword(ctx, resetView, resetCode, "N3wPass!")
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	// loginView still holds the old hash and confirmed=false.
	loginView.BindRefreshToken(domain.RefreshToken{Value: "r2", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, store.Update(ctx, loginView))

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "r2", found.RefreshToken)
	assert.True(t, found.EmailConfirmed)
	ok, err := store.VerifyPassword(ctx, found, "N3wPass!")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateUnknownAccount(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(context.Background(), &domain.Account{ID: "0b7f1c3e-8d0a-4c56-9a59-2f1e7e1c2a10"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	require.ErrorIs(t, store.AddToRole(ctx, account, domain.RoleAdmin), ErrRoleNotFound)

	exists, err := store.RoleExists(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.CreateRole(ctx, domain.RoleUser))
	require.NoError(t, store.CreateRole(ctx, domain.RoleAdmin))
	require.NoError(t, store.AddToRole(ctx, account, domain.RoleUser))
	require.NoError(t, store.AddToRole(ctx, account, domain.RoleAdmin))
	require.NoError(t, store.AddToRole(ctx, account, domain.RoleUser))

	roles, err := store.GetRoles(ctx, account)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleUser, domain.RoleAdmin}, roles)

	isAdmin, err := store.IsInRole(ctx, account, domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, isAdmin)
}

func TestConfirmEmailCodeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	code, err := store.GenerateConfirmationToken(ctx, account)
	require.NoError(t, err)
	require.NotEmpty(t, code)

	result, err := store.ConfirmEmail(ctx, account, code)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	confirmed, err := store.IsConfirmed(ctx, found)
	require.NoError(t, err)
	require.True(t, confirmed)

	result, err = store.ConfirmEmail(ctx, found, code)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	require.Equal(t, CodeInvalidToken, result.Errors[0].Code)
}

func TestVerifyConfirmationTokenDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	code, err := store.GenerateConfirmationToken(ctx, account)
	require.NoError(t, err)

	ok, err := store.VerifyConfirmationToken(ctx, account, "nope")
	require.NoError(t, err)
	require.False(t, ok)

	for i := 0; i < 2; i++ {
		ok, err = store.VerifyConfirmationToken(ctx, account, code)
		require.NoError(t, err)
		require.True(t, ok)
	}

	result, err := store.ConfirmEmail(ctx, account, code)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	ok, err = store.VerifyConfirmationToken(ctx, account, code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConfirmEmailRejectsResetCode(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	code, err := store.GeneratePasswordResetToken(ctx, account)
	require.NoError(t, err)

	result, err := store.ConfirmEmail(ctx, account, code)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	code, err := store.GeneratePasswordResetToken(ctx, account)
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		result, err := store.ResetPassword(ctx, account, "nope", "N3wPass!")
		require.NoError(t, err)
		require.Equal(t, CodeInvalidToken, result.Errors[0].Code)
	})

	t.Run("weak password keeps the code", func(t *testing.T) {
		result, err := store.ResetPassword(ctx, account, code, "short")
		require.NoError(t, err)
		require.False(t, result.Succeeded())
		require.Equal(t, "PasswordTooShort", result.Errors[0].Code)
	})

	t.Run("accepted", func(t *testing.T) {
		result, err := store.ResetPassword(ctx, account, code, "N3wPass!")
		require.NoError(t, err)
		require.True(t, result.Succeeded())

		found, err := store.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		ok, err := store.VerifyPassword(ctx, found, "N3wPass!")
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = store.VerifyPassword(ctx, found, validPassword)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("code already used", func(t *testing.T) {
		result, err := store.ResetPassword(ctx, account, code, "An0ther!")
		require.NoError(t, err)
		require.Equal(t, CodeInvalidToken, result.Errors[0].Code)
	})
}

func TestActionCodesExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore(Options{
		BcryptCost:     bcrypt.MinCost,
		ActionTokenTTL: time.Minute,
		Now:            func() time.Time { return now },
	})
	account := createAccount(t, store, "a@x.com")

	code, err := store.GenerateConfirmationToken(ctx, account)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	result, err := store.ConfirmEmail(ctx, account, code)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
}

func TestManagerWithRedisActionTokens(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := Options{BcryptCost: bcrypt.MinCost}.withDefaults()
	store := NewManager(ManagerDependencies{
		Accounts: newMemoryAccounts(time.Now),
		Roles:    newMemoryRoles(),
		Profiles: newMemoryProfiles(time.Now),
		Actions:  repository.NewActionTokenRepository(client),
	}, opts)
	account := createAccount(t, store, "a@x.com")

	code, err := store.GenerateConfirmationToken(ctx, account)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)
	require.NotContains(t, mr.Keys()[0], code)

	result, err := store.ConfirmEmail(ctx, account, code)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Empty(t, mr.Keys())
}

func TestCreateProfile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := createAccount(t, store, "a@x.com")

	profile := &domain.Profile{AccountID: account.ID, Name: "Ann", Email: account.Email}
	require.NoError(t, store.CreateProfile(ctx, profile))

	got, err := store.profiles.GetByAccountID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "Ann", got.Name)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "accounts",
			"POSTGRES_PASSWORD": "accounts",
			"POSTGRES_DB":       "accounts",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://accounts:accounts@%s:%s/accounts?sslmode=disable", host, port.Port())
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), "../../migrations", zap.NewNop()))
	return pg.PoolHandle()
}

func TestPostgresRepositories(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	accounts := NewAccountRepository(pool)
	roles := NewRoleRepository(pool)
	profiles := NewProfileRepository(pool)

	account := &domain.Account{ID: uuid.NewString(), Email: "a@x.com", PasswordHash: "hash"}

	t.Run("accounts", func(t *testing.T) {
		require.NoError(t, accounts.Create(ctx, account))
		require.False(t, account.CreatedAt.IsZero())

		dup := &domain.Account{ID: uuid.NewString(), Email: "a@x.com", PasswordHash: "hash"}
		require.ErrorIs(t, accounts.Create(ctx, dup), ErrDuplicateEmail)
		dup.Email = "A@X.com"
		require.ErrorIs(t, accounts.Create(ctx, dup), ErrDuplicateEmail)

		got, err := accounts.GetByEmail(ctx, "A@x.COM")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
		require.False(t, got.EmailConfirmed)
		require.False(t, got.HasRefreshToken())

		_, err = accounts.SetEmailConfirmed(ctx, account.ID)
		require.NoError(t, err)
		_, err = accounts.SetPasswordHash(ctx, account.ID, "new-hash")
		require.NoError(t, err)
		expiresAt := time.Now().Add(time.Hour)
		updatedAt, err := accounts.UpdateRefreshToken(ctx, account.ID, "rt", &expiresAt)
		require.NoError(t, err)
		require.False(t, updatedAt.Before(account.UpdatedAt))

		reloaded, err := accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		require.True(t, reloaded.EmailConfirmed)
		require.Equal(t, "new-hash", reloaded.PasswordHash)
		require.Equal(t, "rt", reloaded.RefreshToken)
		require.NotNil(t, reloaded.RefreshTokenExpiresAt)

		_, err = accounts.SetEmailConfirmed(ctx, uuid.NewString())
		require.ErrorIs(t, err, pgx.ErrNoRows)

		_, err = accounts.GetByEmail(ctx, "missing@x.com")
		require.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	t.Run("roles", func(t *testing.T) {
		exists, err := roles.Exists(ctx, domain.RoleUser)
		require.NoError(t, err)
		require.False(t, exists)

		require.NoError(t, roles.Create(ctx, domain.RoleUser))
		require.NoError(t, roles.Create(ctx, domain.RoleUser))
		exists, err = roles.Exists(ctx, domain.RoleUser)
		require.NoError(t, err)
		require.True(t, exists)

		require.NoError(t, roles.AddMember(ctx, account.ID, domain.RoleUser))
		require.NoError(t, roles.AddMember(ctx, account.ID, domain.RoleUser))

		member, err := roles.HasMember(ctx, account.ID, domain.RoleUser)
		require.NoError(t, err)
		require.True(t, member)

		list, err := roles.ListForAccount(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleUser}, list)
	})

	t.Run("profiles", func(t *testing.T) {
		profile := &domain.Profile{AccountID: account.ID, Name: "Ann", Email: account.Email}
		require.NoError(t, profiles.Create(ctx, profile))

		got, err := profiles.GetByAccountID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, "Ann", got.Name)
	})
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// ErrDuplicateEmail is returned when an insert collides with an existing email.
var ErrDuplicateEmail = errors.New("email already registered")

// AccountRepository defines persistence access for credential records.
// Writes after Create touch a single concern each, so a session write from a stale
// read cannot undo a concurrent password reset or email confirmation.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	UpdateRefreshToken(ctx context.Context, id, token string, expiresAt *time.Time) (time.Time, error)
	SetPasswordHash(ctx context.Context, id, hash string) (time.Time, error)
	SetEmailConfirmed(ctx context.Context, id string) (time.Time, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, email, password_hash, email_confirmed, refresh_token, refresh_token_expires_at, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, email, password_hash, email_confirmed, refresh_token, refresh_token_expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.EmailConfirmed,
		account.RefreshToken,
		account.RefreshTokenExpiresAt,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *accountRepository) UpdateRefreshToken(ctx context.Context, id, token string, expiresAt *time.Time) (time.Time, error) {
	const query = `
        UPDATE accounts SET refresh_token=$1, refresh_token_expires_at=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.touch(ctx, query, token, expiresAt, id)
}

func (r *accountRepository) SetPasswordHash(ctx context.Context, id, hash string) (time.Time, error) {
	const query = `
        UPDATE accounts SET password_hash=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	return r.touch(ctx, query, hash, id)
}

func (r *accountRepository) SetEmailConfirmed(ctx context.Context, id string) (time.Time, error) {
	const query = `
        UPDATE accounts SET email_confirmed=TRUE, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`
	return r.touch(ctx, query, id)
}

// touch runs a single-row UPDATE and returns the new updated_at, or pgx.ErrNoRows.
func (r *accountRepository) touch(ctx context.Context, query string, args ...any) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, query, args...).Scan(&updatedAt)
	return updatedAt, err
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email)=lower($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.EmailConfirmed,
		&account.RefreshToken,
		&account.RefreshTokenExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// ProfileRepository persists the display profile attached to an account.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository constructs repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (account_id, name, email)
        VALUES ($1, $2, $3)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, profile.AccountID, profile.Name, profile.Email).Scan(&profile.CreatedAt)
}

func (r *profileRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	const query = `SELECT account_id, name, email, created_at FROM profiles WHERE account_id=$1`
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&profile.AccountID,
		&profile.Name,
		&profile.Email,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepository manages role definitions and account memberships.
type RoleRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	AddMember(ctx context.Context, accountID, name string) error
	HasMember(ctx context.Context, accountID, name string) (bool, error)
	ListForAccount(ctx context.Context, accountID string) ([]string, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository constructs repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM roles WHERE name=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, name).Scan(&exists)
	return exists, err
}

func (r *roleRepository) Create(ctx context.Context, name string) error {
	const query = `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, name)
	return err
}

func (r *roleRepository) AddMember(ctx context.Context, accountID, name string) error {
	const query = `
        INSERT INTO account_roles (account_id, role_name) VALUES ($1, $2)
        ON CONFLICT (account_id, role_name) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, accountID, name)
	return err
}

func (r *roleRepository) HasMember(ctx context.Context, accountID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM account_roles WHERE account_id=$1 AND role_name=$2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, accountID, name).Scan(&exists)
	return exists, err
}

func (r *roleRepository) ListForAccount(ctx context.Context, accountID string) ([]string, error) {
	const query = `
        SELECT role_name FROM account_roles
        WHERE account_id=$1
        ORDER BY granted_at, role_name`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/account-service/internal/domain"
)

const actionTokenPrefix = "account:action"

// ActionTokenRepository stores single-use confirmation and password reset codes.
// Codes are bound to one account and one purpose, and are never stored in clear.
type ActionTokenRepository interface {
	Save(ctx context.Context, purpose domain.ActionPurpose, accountID, code string, ttl time.Duration) error
	// Exists reports whether the code is redeemable without consuming it.
	Exists(ctx context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error)
	// Consume atomically redeems the code. Only the first caller gets true.
	Consume(ctx context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error)
}

type actionTokenRepository struct {
	client *redis.Client
}

// NewActionTokenRepository returns a Redis-backed implementation.
func NewActionTokenRepository(client *redis.Client) ActionTokenRepository {
	return &actionTokenRepository{client: client}
}

func (r *actionTokenRepository) Save(ctx context.Context, purpose domain.ActionPurpose, accountID, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, actionTokenKey(purpose, accountID, code), accountID, ttl).Err(); err != nil {
		return fmt.Errorf("save action token: %w", err)
	}
	return nil
}

func (r *actionTokenRepository) Exists(ctx context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error) {
	n, err := r.client.Exists(ctx, actionTokenKey(purpose, accountID, code)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup action token: %w", err)
	}
	return n == 1, nil
}

func (r *actionTokenRepository) Consume(ctx context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error) {
	owner, err := r.client.GetDel(ctx, actionTokenKey(purpose, accountID, code)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume action token: %w", err)
	}
	return owner == accountID, nil
}

func actionTokenKey(purpose domain.ActionPurpose, accountID, code string) string {
	sum := sha256.Sum256([]byte(code))
	return fmt.Sprintf("%s:%s:%s:%s", actionTokenPrefix, purpose, accountID, hex.EncodeToString(sum[:]))
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

// ErrRoleNotFound is returned when granting a role that was never created.
var ErrRoleNotFound = errors.New("role not found")

// Manager implements Store on top of the account, role, profile and action token repositories.
type Manager struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	profiles repository.ProfileRepository
	actions  repository.ActionTokenRepository
	opts     Options
}

// ManagerDependencies bundles the repositories backing a Manager.
type ManagerDependencies struct {
	Accounts repository.AccountRepository
	Roles    repository.RoleRepository
	Profiles repository.ProfileRepository
	Actions  repository.ActionTokenRepository
}

var _ Store = (*Manager)(nil)

// NewManager builds the store.
func NewManager(deps ManagerDependencies, opts Options) *Manager {
	return &Manager{
		accounts: deps.Accounts,
		roles:    deps.Roles,
		profiles: deps.Profiles,
		actions:  deps.Actions,
		opts:     opts.withDefaults(),
	}
}

func (m *Manager) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := m.accounts.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return account, err
}

func (m *Manager) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	account, err := m.accounts.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return account, err
}

// Create validates the email and password, hashes the password and inserts the account.
// Validation failures are reported in the Result; infrastructure failures as the error.
func (m *Manager) Create(ctx context.Context, account *domain.Account, password string) (domain.Result, error) {
	if r := validateEmail(account.Email); !r.Succeeded() {
		return r, nil
	}
	if r := m.opts.Policy.Validate(password); !r.Succeeded() {
		return r, nil
	}

	if _, err := m.FindByEmail(ctx, account.Email); err == nil {
		return duplicateEmail(account.Email), nil
	} else if !errors.Is(err, ErrNotFound) {
		return domain.Result{}, err
	}

	hash, err := auth.HashPassword(password, m.opts.BcryptCost)
	if err != nil {
		return domain.Result{}, fmt.Errorf("hash password: %w", err)
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.PasswordHash = hash

	if err := m.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return duplicateEmail(account.Email), nil
		}
		return domain.Result{}, err
	}
	return domain.Success, nil
}

func (m *Manager) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return m.profiles.Create(ctx, profile)
}

// Update persists the account's refresh-token slot. The password hash and the
// confirmed flag change only through ResetPassword and ConfirmEmail.
func (m *Manager) Update(ctx context.Context, account *domain.Account) error {
	updatedAt, err := m.accounts.UpdateRefreshToken(ctx, account.ID, account.RefreshToken, account.RefreshTokenExpiresAt)
	return m.touched(account, updatedAt, err)
}

func (m *Manager) touched(account *domain.Account, updatedAt time.Time, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	account.UpdatedAt = updatedAt
	return nil
}

func (m *Manager) VerifyPassword(_ context.Context, account *domain.Account, password string) (bool, error) {
	return auth.PasswordMatches(account.PasswordHash, password)
}

func (m *Manager) IsConfirmed(_ context.Context, account *domain.Account) (bool, error) {
	return account.EmailConfirmed, nil
}

func (m *Manager) IsInRole(ctx context.Context, account *domain.Account, role string) (bool, error) {
	return m.roles.HasMember(ctx, account.ID, role)
}

func (m *Manager) GetRoles(ctx context.Context, account *domain.Account) ([]string, error) {
	return m.roles.ListForAccount(ctx, account.ID)
}

func (m *Manager) GenerateConfirmationToken(ctx context.Context, account *domain.Account) (string, error) {
	return m.generateActionToken(ctx, domain.ActionEmailConfirmation, account)
}

func (m *Manager) GeneratePasswordResetToken(ctx context.Context, account *domain.Account) (string, error) {
	return m.generateActionToken(ctx, domain.ActionPasswordReset, account)
}

func (m *Manager) generateActionToken(ctx context.Context, purpose domain.ActionPurpose, account *domain.Account) (string, error) {
	code, err := newActionCode()
	if err != nil {
		return "", err
	}
	if err := m.actions.Save(ctx, purpose, account.ID, code, m.opts.ActionTokenTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyConfirmationToken reports whether code is a live confirmation code without redeeming it.
func (m *Manager) VerifyConfirmationToken(ctx context.Context, account *domain.Account, code string) (bool, error) {
	return m.actions.Exists(ctx, domain.ActionEmailConfirmation, account.ID, code)
}

// ConfirmEmail redeems the confirmation code and marks the email confirmed.
func (m *Manager) ConfirmEmail(ctx context.Context, account *domain.Account, code string) (domain.Result, error) {
	ok, err := m.actions.Consume(ctx, domain.ActionEmailConfirmation, account.ID, code)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return invalidToken(), nil
	}

	updatedAt, err := m.accounts.SetEmailConfirmed(ctx, account.ID)
	if err := m.touched(account, updatedAt, err); err != nil {
		return domain.Result{}, err
	}
	account.EmailConfirmed = true
	return domain.Success, nil
}

// ResetPassword checks the code, then the new password, and only redeems the code
// once the password is accepted.
func (m *Manager) ResetPassword(ctx context.Context, account *domain.Account, code, newPassword string) (domain.Result, error) {
	exists, err := m.actions.Exists(ctx, domain.ActionPasswordReset, account.ID, code)
	if err != nil {
		return domain.Result{}, err
	}
	if !exists {
		return invalidToken(), nil
	}
	if r := m.opts.Policy.Validate(newPassword); !r.Succeeded() {
		return r, nil
	}

	hash, err := auth.HashPassword(newPassword, m.opts.BcryptCost)
	if err != nil {
		return domain.Result{}, fmt.Errorf("hash password: %w", err)
	}

	ok, err := m.actions.Consume(ctx, domain.ActionPasswordReset, account.ID, code)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return invalidToken(), nil
	}

	updatedAt, err := m.accounts.SetPasswordHash(ctx, account.ID, hash)
	if err := m.touched(account, updatedAt, err); err != nil {
		return domain.Result{}, err
	}
	account.PasswordHash = hash
	return domain.Success, nil
}

func (m *Manager) RoleExists(ctx context.Context, name string) (bool, error) {
	return m.roles.Exists(ctx, name)
}

func (m *Manager) CreateRole(ctx context.Context, name string) error {
	return m.roles.Create(ctx, name)
}

func (m *Manager) AddToRole(ctx context.Context, account *domain.Account, role string) error {
	exists, err := m.roles.Exists(ctx, role)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	return m.roles.AddMember(ctx, account.ID, role)
}

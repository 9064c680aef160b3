package identity

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

// NewMemoryStore returns a Manager backed by process-local repositories.
// It follows the Postgres and Redis contracts, including pgx.ErrNoRows for misses.
func NewMemoryStore(opts Options) *Manager {
	opts = opts.withDefaults()
	return NewManager(ManagerDependencies{
		Accounts: newMemoryAccounts(opts.Now),
		Roles:    newMemoryRoles(),
		Profiles: newMemoryProfiles(opts.Now),
		Actions:  newMemoryActionTokens(opts.Now),
	}, opts)
}

type memoryAccounts struct {
	mu   sync.RWMutex
	byID map[string]domain.Account
	now  func() time.Time
}

func newMemoryAccounts(now func() time.Time) *memoryAccounts {
	return &memoryAccounts{byID: make(map[string]domain.Account), now: now}
}

var _ repository.AccountRepository = (*memoryAccounts)(nil)

func (r *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[account.ID]; ok {
		return repository.ErrDuplicateEmail
	}
	if _, ok := r.lookupEmail(account.Email); ok {
		return repository.ErrDuplicateEmail
	}
	now := r.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.byID[account.ID] = cloneAccount(*account)
	return nil
}

func (r *memoryAccounts) UpdateRefreshToken(_ context.Context, id, token string, expiresAt *time.Time) (time.Time, error) {
	return r.modify(id, func(account *domain.Account) {
		account.RefreshToken = token
		account.RefreshTokenExpiresAt = nil
		if expiresAt != nil {
			at := *expiresAt
			account.RefreshTokenExpiresAt = &at
		}
	})
}

func (r *memoryAccounts) SetPasswordHash(_ context.Context, id, hash string) (time.Time, error) {
	return r.modify(id, func(account *domain.Account) { account.PasswordHash = hash })
}

func (r *memoryAccounts) SetEmailConfirmed(_ context.Context, id string) (time.Time, error) {
	return r.modify(id, func(account *domain.Account) { account.EmailConfirmed = true })
}

func (r *memoryAccounts) modify(id string, apply func(*domain.Account)) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	apply(&account)
	account.UpdatedAt = r.now()
	r.byID[id] = account
	return account.UpdatedAt, nil
}

func (r *memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneAccount(account)
	return &clone, nil
}

func (r *memoryAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.lookupEmail(email)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneAccount(account)
	return &clone, nil
}

func (r *memoryAccounts) lookupEmail(email string) (domain.Account, bool) {
	for _, account := range r.byID {
		if strings.EqualFold(account.Email, email) {
			return account, true
		}
	}
	return domain.Account{}, false
}

func cloneAccount(account domain.Account) domain.Account {
	if account.RefreshTokenExpiresAt != nil {
		expiresAt := *account.RefreshTokenExpiresAt
		account.RefreshTokenExpiresAt = &expiresAt
	}
	return account
}

type memoryRoles struct {
	mu      sync.RWMutex
	roles   map[string]struct{}
	members map[string][]string
}

func newMemoryRoles() *memoryRoles {
	return &memoryRoles{
		roles:   make(map[string]struct{}),
		members: make(map[string][]string),
	}
}

var _ repository.RoleRepository = (*memoryRoles)(nil)

func (r *memoryRoles) Exists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[name]
	return ok, nil
}

func (r *memoryRoles) Create(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[name] = struct{}{}
	return nil
}

func (r *memoryRoles) AddMember(_ context.Context, accountID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.members[accountID], name) {
		r.members[accountID] = append(r.members[accountID], name)
	}
	return nil
}

func (r *memoryRoles) HasMember(_ context.Context, accountID, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.members[accountID], name), nil
}

func (r *memoryRoles) ListForAccount(_ context.Context, accountID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]string, len(r.members[accountID]))
	copy(roles, r.members[accountID])
	return roles, nil
}

type memoryProfiles struct {
	mu        sync.RWMutex
	byAccount map[string]domain.Profile
	now       func() time.Time
}

func newMemoryProfiles(now func() time.Time) *memoryProfiles {
	return &memoryProfiles{byAccount: make(map[string]domain.Profile), now: now}
}

var _ repository.ProfileRepository = (*memoryProfiles)(nil)

func (r *memoryProfiles) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.CreatedAt = r.now()
	r.byAccount[profile.AccountID] = *profile
	return nil
}

func (r *memoryProfiles) GetByAccountID(_ context.Context, accountID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.byAccount[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

type actionKey struct {
	purpose   domain.ActionPurpose
	accountID string
	code      string
}

type memoryActionTokens struct {
	mu      sync.Mutex
	expires map[actionKey]time.Time
	now     func() time.Time
}

func newMemoryActionTokens(now func() time.Time) *memoryActionTokens {
	return &memoryActionTokens{expires: make(map[actionKey]time.Time), now: now}
}

var _ repository.ActionTokenRepository = (*memoryActionTokens)(nil)

func (r *memoryActionTokens) Save(_ context.Context, purpose domain.ActionPurpose, accountID, code string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expires[actionKey{purpose, accountID, code}] = r.now().Add(ttl)
	return nil
}

func (r *memoryActionTokens) Exists(_ context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live(actionKey{purpose, accountID, code}), nil
}

func (r *memoryActionTokens) Consume(_ context.Context, purpose domain.ActionPurpose, accountID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := actionKey{purpose, accountID, code}
	ok := r.live(key)
	delete(r.expires, key)
	return ok, nil
}

// live must be called with mu held.
func (r *memoryActionTokens) live(key actionKey) bool {
	expiresAt, ok := r.expires[key]
	if !ok {
		return false
	}
	if !r.now().Before(expiresAt) {
		delete(r.expires, key)
		return false
	}
	return true
}

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/identity"
	"github.com/spec-kit/account-service/internal/mail"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// Errors returned by the session lifecycle.
var (
	ErrInvalidCredentials = apperrors.NewDomainError(apperrors.CodeInvalidCredentials, "Invalid email or password", http.StatusBadRequest, nil)
	ErrEmailNotConfirmed  = apperrors.NewDomainError(apperrors.CodeEmailNotConfirmed, "Email not confirmed", http.StatusBadRequest, nil)
	ErrInvalidToken       = apperrors.NewDomainError(apperrors.CodeInvalidToken, "Invalid access token or refresh token", http.StatusUnauthorized, nil)
	ErrUserExists         = apperrors.NewDomainError(apperrors.CodeUserExists, "User already exists!", http.StatusConflict, nil)
	ErrUserNotFound       = apperrors.NewDomainError(apperrors.CodeNotFound, "User not found.", http.StatusNotFound, nil)
	ErrConfirmationFailed = apperrors.NewDomainError(apperrors.CodeConfirmationFailed, "Email confirmation failed", http.StatusBadRequest, nil)
)

const registrationFailedMessage = "User creation failed! Please check user details and try again."

// Action email contents.
const (
	confirmSubject = "Confirm your account"
	confirmText    = "Your account is almost ready!"
	resetSubject   = "Reset Password"
	resetText      = "Your password reset request has been processed successfully!"
)

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Expiration   time.Time
	Roles        []string
	AccountID    string
}

// RenewResult is the account recovered from an expired access token.
// Roles are the role claims carried by that token.
type RenewResult struct {
	Account *domain.Account
	Roles   []string
}

// SessionService runs login, renewal, registration, confirmation and password recovery.
type SessionService struct {
	store       identity.Store
	tokens      *auth.TokenIssuer
	mailer      mail.Dispatcher
	logger      *zap.Logger
	links       config.LinksConfig
	mailTimeout time.Duration
	now         func() time.Time
}

// SessionDependencies encapsulates the collaborators of SessionService.
type SessionDependencies struct {
	Store  identity.Store
	Tokens *auth.TokenIssuer
	Mailer mail.Dispatcher
	Logger *zap.Logger
	Now    func() time.Time
}

// NewSessionService builds the service.
func NewSessionService(cfg config.Config, deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		store:       deps.Store,
		tokens:      deps.Tokens,
		mailer:      deps.Mailer,
		logger:      logger,
		links:       cfg.Links,
		mailTimeout: cfg.Mail.SendTimeout(),
		now:         now,
	}
}

// Login checks the password and the confirmation gate, then issues an access token and
// binds a fresh refresh token to the account, replacing any previous one.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ok, err := s.store.VerifyPassword(ctx, account, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	confirmed, err := s.store.IsConfirmed(ctx, account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !confirmed {
		isAdmin, err := s.store.IsInRole(ctx, account, domain.RoleAdmin)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if !isAdmin {
			return nil, ErrEmailNotConfirmed
		}
	}

	roles, err := s.store.GetRoles(ctx, account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return s.issueSession(ctx, account, roles)
}

// Renew recovers the account from an expired access token paired with its current
// refresh token.
func (s *SessionService) Renew(ctx context.Context, accessToken, refreshToken string) (*RenewResult, error) {
	account, claims, err := s.authenticateRenewal(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	return &RenewResult{Account: account, Roles: claims.Values(domain.ClaimRole)}, nil
}

// Refresh performs the Renew checks, then re-issues the access token from the
// presented claims and rotates the refresh token.
func (s *SessionService) Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error) {
	account, claims, err := s.authenticateRenewal(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, account, claims.Values(domain.ClaimRole))
}

func (s *SessionService) authenticateRenewal(ctx context.Context, accessToken, refreshToken string) (*domain.Account, domain.ClaimSet, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, nil, apperrors.NewBadRequest("Invalid client request")
	}

	claims, err := s.tokens.IntrospectExpired(accessToken)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	email, ok := claims.First(domain.ClaimEmail)
	if !ok || email == "" {
		return nil, nil, ErrInvalidToken
	}

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	if !account.HasRefreshToken() ||
		subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(refreshToken)) != 1 ||
		!s.now().Before(*account.RefreshTokenExpiresAt) {
		return nil, nil, ErrInvalidToken
	}
	return account, claims, nil
}

func (s *SessionService) issueSession(ctx context.Context, account *domain.Account, roles []string) (*LoginResult, error) {
	claims := domain.ClaimSet{
		{Type: domain.ClaimEmail, Value: account.Email},
		{Type: domain.ClaimTokenID, Value: auth.NewTokenID()},
	}
	for _, role := range roles {
		claims = append(claims, domain.Claim{Type: domain.ClaimRole, Value: role})
	}

	access, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account.BindRefreshToken(refresh)
	if err := s.store.Update(ctx, account); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &LoginResult{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		Expiration:   access.ExpiresAt,
		Roles:        roles,
		AccountID:    account.ID,
	}, nil
}

// Register creates an unconfirmed account and its profile, then emails a confirmation link.
func (s *SessionService) Register(ctx context.Context, email, password, name string) error {
	account, err := s.createAccount(ctx, email, password, name)
	if err != nil {
		return err
	}

	code, err := s.store.GenerateConfirmationToken(ctx, account)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	s.dispatch(ctx, mail.Message{
		To:          account.Email,
		Subject:     confirmSubject,
		Text:        confirmText,
		CallbackURL: mail.CallbackURL(s.links.ConfirmEmailURL, account.ID, code),
	})
	return nil
}

// RegisterAdmin creates an account holding the Admin role. The email stays unconfirmed.
func (s *SessionService) RegisterAdmin(ctx context.Context, email, password, name string) error {
	account, err := s.createAccount(ctx, email, password, name)
	if err != nil {
		return err
	}
	if err := s.grantRole(ctx, account, domain.RoleAdmin); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

func (s *SessionService) createAccount(ctx context.Context, email, password, name string) (*domain.Account, error) {
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{Email: email}
	result, err := s.store.Create(ctx, account, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !result.Succeeded() {
		if result.Errors[0].Code == identity.CodeDuplicateEmail {
			return nil, ErrUserExists
		}
		return nil, apperrors.NewDomainError(apperrors.CodeRegistrationFailed, registrationFailedMessage,
			http.StatusBadRequest, map[string]any{"reasons": result.Descriptions()})
	}

	profile := &domain.Profile{AccountID: account.ID, Name: name, Email: email}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

// ConfirmEmail grants the User role for a live confirmation code, then redeems it.
func (s *SessionService) ConfirmEmail(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return apperrors.NewBadRequest("UserId or code is missing")
	}

	account, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}

	live, err := s.store.VerifyConfirmationToken(ctx, account, code)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !live {
		return ErrConfirmationFailed
	}

	// The grant is idempotent and precedes redemption, so a failed grant leaves the code usable.
	if err := s.grantRole(ctx, account, domain.RoleUser); err != nil {
		return apperrors.NewInternalError(err)
	}

	result, err := s.store.ConfirmEmail(ctx, account, code)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Succeeded() {
		return ErrConfirmationFailed
	}
	return nil
}

// ForgotPassword emails a reset link. Absent and unconfirmed accounts are reported identically.
func (s *SessionService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	confirmed, err := s.store.IsConfirmed(ctx, account)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !confirmed {
		return ErrUserNotFound
	}

	code, err := s.store.GeneratePasswordResetToken(ctx, account)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	s.dispatch(ctx, mail.Message{
		To:          account.Email,
		Subject:     resetSubject,
		Text:        resetText,
		CallbackURL: mail.CallbackURL(s.links.ResetPasswordURL, account.ID, code),
	})
	return nil
}

// ResetPassword redeems a reset code and replaces the password. Only the first
// rejection reason is reported.
func (s *SessionService) ResetPassword(ctx context.Context, accountID, code, newPassword string) error {
	account, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}

	result, err := s.store.ResetPassword(ctx, account, code, newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Succeeded() {
		return apperrors.NewDomainError(apperrors.CodePasswordResetFailed, result.Errors[0].Description,
			http.StatusBadRequest, nil)
	}
	return nil
}

func (s *SessionService) findByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

func (s *SessionService) grantRole(ctx context.Context, account *domain.Account, role string) error {
	exists, err := s.store.RoleExists(ctx, role)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.store.CreateRole(ctx, role); err != nil {
			return err
		}
	}
	return s.store.AddToRole(ctx, account, role)
}

// dispatch sends an action email. Failures are logged; the caller's mutation stands.
func (s *SessionService) dispatch(ctx context.Context, msg mail.Message) {
	if s.mailer == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
	defer cancel()

	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("action email not delivered",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}

package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountHandler exposes the session lifecycle under /api/account.
type AccountHandler struct {
	sessions *service.SessionService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(sessions *service.SessionService) *AccountHandler {
	return &AccountHandler{sessions: sessions}
}

// Login handles POST /api/account/login.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.sessions.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// UserIDFromToken handles POST /api/account/userid-from-token.
func (h *AccountHandler) UserIDFromToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.sessions.Renew(c.UserContext(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RenewResponse{
		User: dto.AccountResponse{
			ID:             result.Account.ID,
			Email:          result.Account.Email,
			EmailConfirmed: result.Account.EmailConfirmed,
			CreatedAt:      result.Account.CreatedAt,
		},
		Roles: result.Roles,
	}})
}

// Refresh handles POST /api/account/refresh.
func (h *AccountHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.sessions.Refresh(c.UserContext(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// Register handles POST /api/account/register.
func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.sessions.Register(c.UserContext(), req.Email, req.Password, req.Name); err != nil {
		return err
	}
	return success(c, "User created successfully!")
}

// RegisterAdmin handles POST /api/account/register-admin.
func (h *AccountHandler) RegisterAdmin(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.sessions.RegisterAdmin(c.UserContext(), req.Email, req.Password, req.Name); err != nil {
		return err
	}
	return success(c, "User created successfully!")
}

// ConfirmEmail handles GET /api/account/confirm-email?userId=&code=.
func (h *AccountHandler) ConfirmEmail(c *fiber.Ctx) error {
	if err := h.sessions.ConfirmEmail(c.UserContext(), c.Query("userId"), c.Query("code")); err != nil {
		return err
	}
	return success(c, "Email confirmed successfully.")
}

// ForgotPassword handles POST /api/account/forgot-password.
func (h *AccountHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.sessions.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return success(c, "You may now reset your password.")
}

// ResetPassword handles POST /api/account/reset-password.
func (h *AccountHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.sessions.ResetPassword(c.UserContext(), req.ID, req.Code, req.Password); err != nil {
		return err
	}
	return success(c, "Password successfully reset.")
}

// Me handles GET /api/account/me.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{"data": dto.PrincipalResponse{Email: principal.Email, Roles: principal.Roles}})
}

type validatable interface {
	Validate() error
}

func bind(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := req.Validate(); err != nil {
		var errs validation.Errors
		if errors.As(err, &errs) {
			details := make(map[string]any, len(errs))
			for field, fieldErr := range errs {
				details[field] = fieldErr.Error()
			}
			return apperrors.NewValidationError("invalid payload", details)
		}
		return apperrors.NewBadRequest(err.Error())
	}
	return nil
}

func loginResponse(result *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiration:   result.Expiration,
		Roles:        result.Roles,
		UserID:       result.AccountID,
	}
}

func success(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"data": dto.StatusResponse{Status: "Success", Message: message}})
}

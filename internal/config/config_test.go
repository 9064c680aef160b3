package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_TOKEN_VALIDITY_IN_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "account-service", cfg.Auth.JWTIssuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	require.Equal(t, 24*time.Hour, cfg.Auth.ActionTokenTTL())
	require.Equal(t, 10*time.Second, cfg.Mail.SendTimeout())
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-much-longer-secret-for-testing-purposes")
	t.Setenv("JWT_TOKEN_VALIDITY_IN_MINUTES", "5")
	t.Setenv("JWT_REFRESH_TOKEN_VALIDITY_IN_DAYS", "30")
	t.Setenv("AUTH_ALLOW_ADMIN_REGISTRATION", "false")
	t.Setenv("MAIL_SEND_TIMEOUT_SECONDS", "3")
	t.Setenv("LINKS_CONFIRM_EMAIL_URL", "https://front.example/#/start-menu")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	require.False(t, cfg.Auth.AllowAdminRegistration)
	require.Equal(t, 3*time.Second, cfg.Mail.SendTimeout())
	require.Equal(t, "https://front.example/#/start-menu", cfg.Links.ConfirmEmailURL)
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Auth: AuthConfig{
		JWTSecret:                "secret",
		AccessTokenTTLMinutes:    15,
		RefreshTokenValidityDays: 7,
		ActionTokenTTLMinutes:    60,
	}}
	require.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.Auth.JWTSecret = ""
	require.Error(t, noSecret.Validate())

	noRefresh := valid
	noRefresh.Auth.RefreshTokenValidityDays = 0
	require.Error(t, noRefresh.Validate())
}

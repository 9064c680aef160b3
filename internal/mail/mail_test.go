package mail

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/account-service/internal/config"
)

func TestCallbackURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"hash route", "http://localhost:9000/#/start-menu", "http://localhost:9000/#/start-menu?userId=u1&code=c%2B1"},
		{"existing query", "https://app.example.com/reset?lang=en", "https://app.example.com/reset?lang=en&userId=u1&code=c%2B1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CallbackURL(tt.base, "u1", "c+1"))
		})
	}
}

func TestRendererUsesBuiltInTemplate(t *testing.T) {
	r, err := NewRenderer("", "Map of Activities")
	require.NoError(t, err)

	msg := Message{
		To:          "a@x.com",
		Subject:     "Confirm your account",
		Text:        "Your account is almost ready!",
		CallbackURL: "http://localhost:9000/#/start-menu?userId=u1&code=abc",
	}
	html, err := r.HTML(msg)
	require.NoError(t, err)
	assert.Contains(t, html, "Map of Activities")
	assert.Contains(t, html, "Your account is almost ready!")
	assert.Contains(t, html, "userId=u1&amp;code=abc")

	plain := r.Plain(msg)
	assert.Contains(t, plain, msg.Text)
	assert.Contains(t, plain, msg.CallbackURL)
}

func TestRendererEscapesText(t *testing.T) {
	r, err := NewRenderer("", "Sender")
	require.NoError(t, err)

	html, err := r.HTML(Message{Text: "<script>alert(1)</script>", CallbackURL: "http://x"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRendererLoadsCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>{{.Text}}</p><a href="{{.CallbackURL}}">go</a>`), 0o600))

	r, err := NewRenderer(path, "Sender")
	require.NoError(t, err)
	html, err := r.HTML(Message{Text: "hello", CallbackURL: "http://x/cb"})
	require.NoError(t, err)
	assert.Equal(t, `<p>hello</p><a href="http://x/cb">go</a>`, html)
}

func TestRendererMissingTemplate(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "missing.html"), "Sender")
	require.Error(t, err)
}

func TestLogDispatcher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))

	require.NoError(t, d.Send(context.Background(), Message{To: "a@x.com", Subject: "Reset Password", CallbackURL: "http://x"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "a@x.com", entry.ContextMap()["to"])
	assert.Equal(t, "Reset Password", entry.ContextMap()["subject"])
}

func TestNewSMTPDispatcher(t *testing.T) {
	r, err := NewRenderer("", "Sender")
	require.NoError(t, err)

	cfg := config.MailConfig{
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		Username:       "user",
		Password:       "pass",
		FromAddress:    "noreply@example.com",
		FromName:       "Sender",
		TimeoutSeconds: 1,
	}
	d, err := NewSMTPDispatcher(cfg, r, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, d)

	cfg.SMTPHost = ""
	_, err = NewSMTPDispatcher(cfg, r, zap.NewNop())
	require.Error(t, err)
}

package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// SMTPDispatcher sends action emails through an SMTP relay.
type SMTPDispatcher struct {
	client   *gomail.Client
	renderer *Renderer
	cfg      config.MailConfig
	logger   *zap.Logger
}

var _ Dispatcher = (*SMTPDispatcher)(nil)

// NewSMTPDispatcher configures the SMTP client. No connection is opened until Send.
func NewSMTPDispatcher(cfg config.MailConfig, renderer *Renderer, logger *zap.Logger) (*SMTPDispatcher, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTimeout(cfg.SendTimeout()),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
			gomail.WithTLSPolicy(gomail.TLSMandatory),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPDispatcher{client: client, renderer: renderer, cfg: cfg, logger: logger}, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	html, err := d.renderer.HTML(msg)
	if err != nil {
		return err
	}

	m := gomail.NewMsg()
	if err := m.FromFormat(d.cfg.FromName, d.cfg.FromAddress); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, html)
	m.AddAlternativeString(gomail.TypeTextPlain, d.renderer.Plain(msg))

	if err := d.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	d.logger.Debug("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes action emails to the log instead of delivering them.
// It is used when no SMTP host is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

var _ Dispatcher = (*LogDispatcher)(nil)

// NewLogDispatcher creates the dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, msg Message) error {
	d.logger.Info("mail not delivered, smtp disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("callback_url", msg.CallbackURL))
	return nil
}

package notify

import (
	"context"
	"log/slog"

	appnotify "tablebook/internal/app/notify"
)

// LogSink writes outgoing texts to the log. It stands in for the SMS gateway
// in dev and memory setups.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) SendText(ctx context.Context, recipientPhone, message string) error {
	if s.Logger != nil {
		s.Logger.Info("sms", "to", recipientPhone, "body", message)
	}
	return nil
}

var _ appnotify.NotificationSink = LogSink{}

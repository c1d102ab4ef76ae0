package notify

import (
	"context"
	"encoding/json"
	"time"

	appnotify "tablebook/internal/app/notify"
)

// Publisher is the slice of the broker producer the SMS sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// SMSPublisher hands messages to the SMS gateway through a broker topic. The
// gateway consumes the topic and owns actual carrier delivery.
type SMSPublisher struct {
	Producer Publisher
	Topic    string
}

type smsPayload struct {
	To     string    `json:"to"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

func (s SMSPublisher) SendText(ctx context.Context, recipientPhone, message string) error {
	payload, err := json.Marshal(smsPayload{
		To:     recipientPhone,
		Body:   message,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.Producer.Publish(ctx, s.Topic, recipientPhone, payload, map[string]string{
		"content-type": "application/json",
	})
}

var _ appnotify.NotificationSink = SMSPublisher{}

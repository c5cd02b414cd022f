package email

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/kafka"
)

// Sender turns notification events into outbound mail. Template rendering
// lives elsewhere; this records the delivery intent.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	fields := logrus.Fields{
		"type":      event.Type,
		"email":     event.Email,
		"reference": event.Reference,
	}
	if event.QuoteID != 0 {
		fields["quote_id"] = event.QuoteID
	}
	logrus.WithFields(fields).Info("sending notification email")
	return nil
}

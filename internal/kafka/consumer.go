package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// EventHandler processes one decoded notification event.
type EventHandler func(ctx context.Context, event Event) error

// Consumer reads notification events for the worker. The short MaxWait
// keeps quote expiry notices timely on an otherwise low-volume topic.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			MaxWait:           time.Second,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume decodes each message into an Event and hands it to the handler.
// Undecodable messages are logged and skipped; a handler error stops the
// loop so the worker can decide whether to restart.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := dispatch(ctx, msg.Value, handler); err != nil {
			return err
		}
	}
}

func dispatch(ctx context.Context, payload []byte, handler EventHandler) error {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		logrus.WithError(err).Warn("skipping undecodable notification message")
		return nil
	}
	return handler(ctx, event)
}

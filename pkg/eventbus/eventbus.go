// Package eventbus carries commands and notifications over a watermill
// publisher and subscriber pair.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/pvm/pkg/events"
)

// Handler processes one message payload. Returning an error nacks the
// message so it is delivered again.
type Handler func(ctx context.Context, payload []byte) error

type Topics struct {
	Commands      string
	Notifications string
}

func DefaultTopics() Topics {
	return Topics{Commands: events.CommandsTopic, Notifications: events.NotificationsTopic}
}

type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topics     Topics
	logger     *slog.Logger
}

func New(pub message.Publisher, sub message.Subscriber, topics Topics, logger *slog.Logger) *Bus {
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		topics:     topics,
		logger:     logger.With("module", "eventbus"),
	}
}

func (b *Bus) GenerateID() string {
	return watermill.NewULID()
}

// PublishCommand queues a command for the handlers.
func (b *Bus) PublishCommand(ctx context.Context, command events.Command) error {
	payload, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	msg := message.NewMessage("cmd-"+b.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.CommandMetadataKey, string(command.GetCommand()))

	if err := b.publisher.Publish(b.topics.Commands, msg); err != nil {
		return fmt.Errorf("failed to publish %s command: %w", command.GetCommand(), err)
	}

	return nil
}

// Notify publishes a notification for the notifier backends.
func (b *Bus) Notify(ctx context.Context, notification events.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := message.NewMessage("notify-"+b.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.RoutingKeyMetadataKey, notification.RoutingKey)

	if err := b.publisher.Publish(b.topics.Notifications, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Subscribe delivers every command to handler until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) error {
	return b.subscribe(ctx, b.topics.Commands, handler)
}

// SubscribeNotifications delivers every notification to handler until ctx
// is done.
func (b *Bus) SubscribeNotifications(ctx context.Context, handler Handler) error {
	return b.subscribe(ctx, b.topics.Notifications, handler)
}

func (b *Bus) subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			err := handler(ctx, msg.Payload)
			if err != nil {
				b.logger.ErrorContext(ctx, "Message handling failed, will be redelivered",
					"topic", topic, "message_id", msg.UUID, "error", err)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (b *Bus) Close() error {
	err := b.publisher.Close()
	if err != nil {
		return err
	}

	return b.subscriber.Close()
}

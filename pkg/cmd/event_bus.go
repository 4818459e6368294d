package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/pvm/pkg/channels/gochannel"
	"github.com/dukex/pvm/pkg/channels/kafka"
	"github.com/dukex/pvm/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus creates the command and notification bus over the named
// transport, "gochannel" or "kafka".
func NewEventBus(provider string, topics eventbus.Topics, tracing bool, logger *slog.Logger) (*eventbus.Bus, error) {
	var (
		pub message.Publisher
		sub message.Subscriber
		err error
	)

	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pub, sub, err = gochannel.CreateChannel(watermillLogger)
	case "kafka":
		pub, sub, err = kafka.CreateChannel(watermillLogger, "pvm", tracing)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s pub/sub: %w", provider, err)
	}

	return eventbus.New(pub, sub, topics, logger), nil
}

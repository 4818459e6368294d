// Package gochannel provides the in-process channel used by single instance
// setups and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel returns one GoChannel acting as both publisher and
// subscriber. Messages are lost when the process exits.
func CreateChannel(logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return pubSub, pubSub, nil
}

// CreatePersistentChannel keeps published messages so subscribers joining
// late still receive them.
func CreatePersistentChannel(logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1000,
			Persistent:          true,
		},
		logger,
	)

	return pubSub, pubSub, nil
}

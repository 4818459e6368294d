package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/pvm/pkg/events"
)

// MockPublisher is a mock implementation of handler.Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCommand(ctx context.Context, command events.Command) error {
	args := m.Called(ctx, command)

	return args.Error(0)
}

func (m *MockPublisher) Notify(ctx context.Context, notification events.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

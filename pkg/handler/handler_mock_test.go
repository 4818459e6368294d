package handler_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/docstore/memory"
	"github.com/dukex/pvm/pkg/events"
	"github.com/dukex/pvm/pkg/handler"
	"github.com/dukex/pvm/pkg/lock"
	"github.com/dukex/pvm/pkg/metrics"
	"github.com/dukex/pvm/pkg/mocks"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence/redis"
	"github.com/dukex/pvm/pkg/registry"
	"github.com/dukex/pvm/pkg/testutil"
)

func TestHandle_InfrastructureFailureIsRedelivered(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.PointerRepository.On("GetByID", mock.Anything, "p1").Return(nil, errors.New("connection refused"))

	h := handler.New(handler.Config{
		ProcessesPath: "../../examples/processes",
		Persistence:   store,
		Documents:     memory.New(),
		Locker:        lock.NewLocal(),
		Publisher:     &mocks.MockPublisher{},
	}, slog.Default())

	err := h.Handle(context.Background(), []byte(`{"command":"step","pointer_id":"p1","user_identifier":"juan"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	store.PointerRepository.AssertExpectations(t)
}

func TestStart_FailedCommitIsNotCounted(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.PointerRepository.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	provider := &mocks.MockHierarchyProvider{}
	provider.On("ID").Return("anyone")
	provider.On("FindUsers", mock.Anything, mock.Anything).Return([]*models.User{}, nil)

	hierarchies := registry.New[auth.HierarchyProvider](slog.Default())
	hierarchies.Register(provider)

	collectors := metrics.New(prometheus.NewRegistry())

	h := handler.New(handler.Config{
		ProcessesPath: "../../examples/processes",
		Persistence:   store,
		Documents:     memory.New(),
		Locker:        lock.NewLocal(),
		Hierarchies:   hierarchies,
		Publisher:     &mocks.MockPublisher{},
		Metrics:       collectors,
	}, slog.Default())

	_, err := h.Start(context.Background(), events.Start{Command: events.StartCommand, Process: "simple"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	ongoing := collectors.Executions().WithLabelValues(string(models.ExecutionStatusOngoing))
	assert.InDelta(t, 0, promtestutil.ToFloat64(ongoing), 0)

	store.PointerRepository.AssertExpectations(t)
}

func TestStart_ProviderFailuresDoNotBlock(t *testing.T) {
	ctx := context.Background()

	server := miniredis.RunT(t)
	store := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: server.Addr()}), slog.Default())
	require.NoError(t, store.Users().Save(ctx, testutil.CreateTestUser("juan")))

	provider := &mocks.MockHierarchyProvider{}
	provider.On("ID").Return("anyone")
	provider.On("FindUsers", mock.Anything, mock.Anything).Return(nil, errors.New("directory unavailable"))

	hierarchies := registry.New[auth.HierarchyProvider](slog.Default())
	hierarchies.Register(provider)

	publisher := &mocks.MockPublisher{}

	h := handler.New(handler.Config{
		ProcessesPath: "../../examples/processes",
		Persistence:   store,
		Documents:     memory.New(),
		Locker:        lock.NewLocal(),
		Hierarchies:   hierarchies,
		Publisher:     publisher,
	}, slog.Default())

	execution, err := h.Start(ctx, events.Start{Command: events.StartCommand, Process: "simple"})
	require.NoError(t, err)

	pointers, err := store.Pointers().ListByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, pointers, 1)

	tasks, err := store.Users().Tasks(ctx, "juan")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	provider.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestStart_NotificationFailureIsLogged(t *testing.T) {
	ctx := context.Background()

	server := miniredis.RunT(t)
	store := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: server.Addr()}), slog.Default())
	require.NoError(t, store.Users().Save(ctx, testutil.CreateTestUser("juan")))

	provider := &mocks.MockHierarchyProvider{}
	provider.On("ID").Return("anyone")
	provider.On("FindUsers", mock.Anything, map[string]string{}).Return([]*models.User{testutil.CreateTestUser("juan")}, nil)

	hierarchies := registry.New[auth.HierarchyProvider](slog.Default())
	hierarchies.Register(provider)

	publisher := &mocks.MockPublisher{}
	publisher.On("Notify", mock.Anything, mock.MatchedBy(func(notification events.Notification) bool {
		return notification.RoutingKey == "email" && notification.Body["email"] == "juan@example.com"
	})).Return(errors.New("broker down")).Once()

	h := handler.New(handler.Config{
		ProcessesPath: "../../examples/processes",
		Persistence:   store,
		Documents:     memory.New(),
		Locker:        lock.NewLocal(),
		Hierarchies:   hierarchies,
		Publisher:     publisher,
	}, slog.Default())

	execution, err := h.Start(ctx, events.Start{Command: events.StartCommand, Process: "simple"})
	require.NoError(t, err)

	tasks, err := store.Users().Tasks(ctx, "juan")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	history, err := h.History(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "juan", history[0].NotifiedUsers[0].Identifier)

	publisher.AssertExpectations(t)
}

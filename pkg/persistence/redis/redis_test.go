package redis_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/persistence/redis"
)

func setupTestPersistence(t *testing.T) (*redis.Persistence, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: server.Addr()})

	p := redis.NewFromClient(client, slog.Default())
	t.Cleanup(func() {
		_ = p.Close(context.Background())
	})

	return p, server
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	p, err := redis.NewPersistence(ctx, slog.Default(), "redis://"+server.Addr()+"/0")
	require.NoError(t, err)

	require.NoError(t, p.HealthCheck(ctx))
	require.NoError(t, p.Close(ctx))

	_, err = redis.NewPersistence(ctx, slog.Default(), "not a url")
	assert.Error(t, err)
}

func TestPointerRepository(t *testing.T) {
	ctx := context.Background()
	p, server := setupTestPersistence(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &models.Pointer{ID: "p1", ExecutionID: "e1", NodeID: "legal_node", CreatedAt: now}
	second := &models.Pointer{ID: "p2", ExecutionID: "e1", NodeID: "finance_node", CreatedAt: now.Add(time.Second)}
	other := &models.Pointer{ID: "p3", ExecutionID: "e2", NodeID: "start_node", CreatedAt: now}

	for _, pointer := range []*models.Pointer{second, first, other} {
		require.NoError(t, p.Pointers().Save(ctx, pointer))
	}

	assert.True(t, server.Exists("pvm:pointer:p1"))

	got, err := p.Pointers().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "legal_node", got.NodeID)
	assert.True(t, now.Equal(got.CreatedAt))

	pointers, err := p.Pointers().ListByExecution(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, pointers, 2)
	assert.Equal(t, "p1", pointers[0].ID)
	assert.Equal(t, "p2", pointers[1].ID)

	require.NoError(t, p.Pointers().Delete(ctx, "p1"))
	require.NoError(t, p.Pointers().Delete(ctx, "p1"))

	_, err = p.Pointers().GetByID(ctx, "p1")
	assert.True(t, persistence.IsPointerNotFound(err))

	pointers, err = p.Pointers().ListByExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, pointers, 1)

	require.NoError(t, p.Pointers().DeleteByExecution(ctx, "e1"))

	pointers, err = p.Pointers().ListByExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, pointers)

	_, err = p.Pointers().GetByID(ctx, "p3")
	assert.NoError(t, err)
}

func TestExecutionRepository(t *testing.T) {
	ctx := context.Background()
	p, _ := setupTestPersistence(t)

	now := time.Now().UTC()
	older := &models.Execution{ID: "e1", ProcessName: "simple.2018-02-19", Status: models.ExecutionStatusOngoing, StartedAt: now.Add(-time.Hour)}
	newer := &models.Execution{ID: "e2", ProcessName: "simple.2018-02-19", Status: models.ExecutionStatusOngoing, StartedAt: now}

	require.NoError(t, p.Executions().Save(ctx, older))
	require.NoError(t, p.Executions().Save(ctx, newer))

	newer.Finish(models.ExecutionStatusFinished, now.Add(time.Minute))
	require.NoError(t, p.Executions().Save(ctx, newer))

	got, err := p.Executions().GetByID(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFinished, got.Status)
	require.NotNil(t, got.FinishedAt)

	executions, err := p.Executions().List(ctx)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e2", executions[0].ID)

	_, err = p.Executions().GetByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	p, _ := setupTestPersistence(t)

	require.NoError(t, p.Users().Save(ctx, &models.User{Identifier: "pedro", Fullname: "Pedro"}))
	require.NoError(t, p.Users().Save(ctx, &models.User{Identifier: "juan", Fullname: "Juan", Email: "juan@example.com"}))

	user, err := p.Users().GetByIdentifier(ctx, "juan")
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", user.Email)

	_, err = p.Users().GetByIdentifier(ctx, "nobody")
	assert.True(t, persistence.IsUserNotFound(err))

	users, err := p.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "juan", users[0].Identifier)

	require.NoError(t, p.Users().AddTask(ctx, "juan", "p1"))
	require.NoError(t, p.Users().AddTask(ctx, "pedro", "p1"))
	require.NoError(t, p.Users().AddTask(ctx, "juan", "p2"))

	tasks, err := p.Users().Tasks(ctx, "juan")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, tasks)

	assignees, err := p.Users().Assignees(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"juan", "pedro"}, assignees)

	require.NoError(t, p.Users().RemoveTask(ctx, "p1"))

	tasks, err = p.Users().Tasks(ctx, "juan")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, tasks)

	tasks, err = p.Users().Tasks(ctx, "pedro")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

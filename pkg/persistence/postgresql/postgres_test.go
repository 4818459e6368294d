package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"user_tasks", "users", "pointers", "executions", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping postgres test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("pvm_test"),
			postgres.WithUsername("pvm"),
			postgres.WithPassword("pvm"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"pointers", "executions", "users", "user_tasks", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	require.NoError(t, p.HealthCheck(ctx))

	// Running the migrations again over a migrated database is a no-op.
	again, err := postgresql.NewPersistence(ctx, slog.Default(), databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestPointerRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &models.Pointer{ID: "p1", ExecutionID: "e1", NodeID: "legal_node", CreatedAt: now}
	second := &models.Pointer{ID: "p2", ExecutionID: "e1", NodeID: "finance_node", CreatedAt: now.Add(time.Second)}
	other := &models.Pointer{ID: "p3", ExecutionID: "e2", NodeID: "start_node", CreatedAt: now}

	for _, pointer := range []*models.Pointer{second, first, other} {
		require.NoError(t, p.Pointers().Save(ctx, pointer))
	}

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

	require.NoError(t, p.Pointers().DeleteByExecution(ctx, "e1"))

	pointers, err = p.Pointers().ListByExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, pointers)

	_, err = p.Pointers().GetByID(ctx, "p3")
	assert.NoError(t, err)
}

func TestExecutionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	older := &models.Execution{ID: "e1", ProcessName: "simple.2018-02-19", Status: models.ExecutionStatusOngoing, StartedAt: now.Add(-time.Hour)}
	newer := &models.Execution{ID: "e2", ProcessName: "simple.2018-02-19", Name: "Simple", Status: models.ExecutionStatusOngoing, StartedAt: now}

	require.NoError(t, p.Executions().Save(ctx, older))
	require.NoError(t, p.Executions().Save(ctx, newer))

	newer.Finish(models.ExecutionStatusFinished, now.Add(time.Minute))
	require.NoError(t, p.Executions().Save(ctx, newer))

	got, err := p.Executions().GetByID(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFinished, got.Status)
	assert.Equal(t, "Simple", got.Name)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, now.Add(time.Minute).Equal(*got.FinishedAt))

	got, err = p.Executions().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)

	executions, err := p.Executions().List(ctx)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e2", executions[0].ID)

	_, err = p.Executions().GetByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	err = p.Executions().Save(ctx, &models.Execution{ID: "e3", ProcessName: "simple", Status: "paused", StartedAt: now})
	assert.Error(t, err)
}

func TestUserRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

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

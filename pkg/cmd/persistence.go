package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/dukex/pvm/pkg/docstore"
	"github.com/dukex/pvm/pkg/docstore/memory"
	"github.com/dukex/pvm/pkg/docstore/mongo"
	"github.com/dukex/pvm/pkg/lock"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/persistence/postgresql"
	"github.com/dukex/pvm/pkg/persistence/redis"
)

var ErrUnsupportedPersistence = errors.New("unsupported persistence provider")

const lockPrefix = "pvm:"

// NewPersistence opens the store named by the scheme of databaseURL:
// redis:// or postgres://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "redis":
		store, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	case "postgres":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPersistence, databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	switch scheme {
	case "redis", "rediss":
		return "redis"
	case "postgres", "postgresql":
		return "postgres"
	default:
		return scheme
	}
}

// NewDocumentStore connects to mongo at mongoURL, or keeps documents in
// memory when no URL is given.
func NewDocumentStore(ctx context.Context, logger *slog.Logger, mongoURL, database string) (docstore.Store, error) {
	if mongoURL == "" {
		logger.WarnContext(ctx, "No document store configured, history is kept in memory")

		return memory.New(), nil
	}

	store, err := mongo.NewStore(ctx, logger, mongoURL, database)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// NewLocker returns a lock shared through redis when a redis server is
// available, either as the persistence store or through redisURL. Otherwise
// locks only hold within this process.
func NewLocker(ctx context.Context, logger *slog.Logger, redisURL string, store persistence.Persistence) (lock.Locker, error) {
	if shared, ok := store.(*redis.Persistence); ok {
		return lock.NewRedis(shared.Client(), lockPrefix), nil
	}

	if redisURL == "" {
		logger.WarnContext(ctx, "No redis configured, execution locks are local to this process")

		return lock.NewLocal(), nil
	}

	options, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := backend.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return lock.NewRedis(client, lockPrefix), nil
}

// Package redis provides the Redis persistence implementation for pointers,
// executions and users.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/dukex/pvm/pkg/persistence"
)

const defaultPrefix = "pvm:"

// Persistence implements the persistence layer for Redis.
type Persistence struct {
	client     backend.UniversalClient
	logger     *slog.Logger
	pointers   *PointerRepository
	executions *ExecutionRepository
	users      *UserRepository
}

// NewPersistence connects to the server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := backend.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewFromClient(client, logger), nil
}

// NewFromClient creates the persistence layer over an existing client.
func NewFromClient(client backend.UniversalClient, logger *slog.Logger) *Persistence {
	keys := keyspace(defaultPrefix)

	return &Persistence{
		client:     client,
		logger:     logger.With("module", "redis_persistence"),
		pointers:   &PointerRepository{client: client, keys: keys},
		executions: &ExecutionRepository{client: client, keys: keys},
		users:      &UserRepository{client: client, keys: keys},
	}
}

// Client exposes the underlying client so other components can share the
// connection.
func (p *Persistence) Client() backend.UniversalClient {
	return p.client
}

func (p *Persistence) Pointers() persistence.PointerRepository {
	return p.pointers
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) Users() persistence.UserRepository {
	return p.users
}

// HealthCheck verifies the redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the redis client.
func (p *Persistence) Close(context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}

	return nil
}

type keyspace string

func (k keyspace) pointer(id string) string {
	return string(k) + "pointer:" + id
}

func (k keyspace) assignees(pointerID string) string {
	return string(k) + "pointer:" + pointerID + ":assignees"
}

func (k keyspace) execution(id string) string {
	return string(k) + "execution:" + id
}

func (k keyspace) executionPointers(id string) string {
	return string(k) + "execution:" + id + ":pointers"
}

func (k keyspace) executions() string {
	return string(k) + "executions"
}

func (k keyspace) user(identifier string) string {
	return string(k) + "user:" + identifier
}

func (k keyspace) tasks(identifier string) string {
	return string(k) + "user:" + identifier + ":tasks"
}

func (k keyspace) users() string {
	return string(k) + "users"
}

// load reads a JSON document. It returns backend.Nil when the key is absent.
func load[T any](ctx context.Context, client backend.UniversalClient, key string) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return &value, nil
}

// loadAll reads several JSON documents at once, skipping absent keys.
func loadAll[T any](ctx context.Context, client backend.UniversalClient, keys []string) ([]*T, error) {
	if len(keys) == 0 {
		return []*T{}, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*T, 0, len(values))

	for i, raw := range values {
		text, ok := raw.(string)
		if !ok {
			continue
		}

		var value T
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", keys[i], err)
		}

		result = append(result, &value)
	}

	return result, nil
}

func isNil(err error) bool {
	return errors.Is(err, backend.Nil)
}

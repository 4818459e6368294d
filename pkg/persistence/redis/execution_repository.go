package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// ExecutionRepository stores executions as JSON documents indexed by start
// time in a sorted set.
type ExecutionRepository struct {
	client backend.UniversalClient
	keys   keyspace
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, r.keys.execution(execution.ID), data, 0)
		pipe.ZAdd(ctx, r.keys.executions(), backend.Z{
			Score:  float64(execution.StartedAt.UnixNano()),
			Member: execution.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := load[models.Execution](ctx, r.client, r.keys.execution(id))
	if isNil(err) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// List returns every execution, most recently started first.
func (r *ExecutionRepository) List(ctx context.Context) ([]*models.Execution, error) {
	ids, err := r.client.ZRevRange(ctx, r.keys.executions(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.execution(id))
	}

	executions, err := loadAll[models.Execution](ctx, r.client, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	backend "github.com/redis/go-redis/v9"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// PointerRepository stores each pointer as a JSON document and indexes it
// in a set per execution.
type PointerRepository struct {
	client backend.UniversalClient
	keys   keyspace
}

func (r *PointerRepository) Save(ctx context.Context, pointer *models.Pointer) error {
	data, err := json.Marshal(pointer)
	if err != nil {
		return fmt.Errorf("failed to marshal pointer: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, r.keys.pointer(pointer.ID), data, 0)
		pipe.SAdd(ctx, r.keys.executionPointers(pointer.ExecutionID), pointer.ID)

		return nil
	})
	if err != nil {
		return persistence.NewPointerError("Save", pointer.ID, err)
	}

	return nil
}

func (r *PointerRepository) GetByID(ctx context.Context, id string) (*models.Pointer, error) {
	pointer, err := load[models.Pointer](ctx, r.client, r.keys.pointer(id))
	if isNil(err) {
		return nil, persistence.NewPointerError("GetByID", id, persistence.ErrPointerNotFound)
	}

	if err != nil {
		return nil, persistence.NewPointerError("GetByID", id, err)
	}

	return pointer, nil
}

// Delete removes a pointer. Deleting an absent pointer is not an error.
func (r *PointerRepository) Delete(ctx context.Context, id string) error {
	pointer, err := r.GetByID(ctx, id)
	if persistence.IsPointerNotFound(err) {
		return nil
	}

	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, r.keys.pointer(id))
		pipe.SRem(ctx, r.keys.executionPointers(pointer.ExecutionID), id)

		return nil
	})
	if err != nil {
		return persistence.NewPointerError("Delete", id, err)
	}

	return nil
}

// ListByExecution returns the live pointers of an execution, oldest first.
func (r *PointerRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Pointer, error) {
	ids, err := r.client.SMembers(ctx, r.keys.executionPointers(executionID)).Result()
	if err != nil {
		return nil, persistence.NewExecutionError("ListPointers", executionID, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.pointer(id))
	}

	pointers, err := loadAll[models.Pointer](ctx, r.client, keys)
	if err != nil {
		return nil, persistence.NewExecutionError("ListPointers", executionID, err)
	}

	slices.SortFunc(pointers, func(a, b *models.Pointer) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return pointers, nil
}

func (r *PointerRepository) DeleteByExecution(ctx context.Context, executionID string) error {
	ids, err := r.client.SMembers(ctx, r.keys.executionPointers(executionID)).Result()
	if err != nil {
		return persistence.NewExecutionError("DeletePointers", executionID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, r.keys.pointer(id))
		}

		pipe.Del(ctx, r.keys.executionPointers(executionID))

		return nil
	})
	if err != nil {
		return persistence.NewExecutionError("DeletePointers", executionID, err)
	}

	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	backend "github.com/redis/go-redis/v9"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// UserRepository stores users and keeps task assignments in two sets, one
// per user and one per pointer, so either side can be read directly.
type UserRepository struct {
	client backend.UniversalClient
	keys   keyspace
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, r.keys.user(user.Identifier), data, 0)
		pipe.SAdd(ctx, r.keys.users(), user.Identifier)

		return nil
	})
	if err != nil {
		return persistence.NewUserError("Save", user.Identifier, err)
	}

	return nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user, err := load[models.User](ctx, r.client, r.keys.user(identifier))
	if isNil(err) {
		return nil, persistence.NewUserError("GetByIdentifier", identifier, persistence.ErrUserNotFound)
	}

	if err != nil {
		return nil, persistence.NewUserError("GetByIdentifier", identifier, err)
	}

	return user, nil
}

// List returns every user ordered by identifier.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	identifiers, err := r.client.SMembers(ctx, r.keys.users()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	slices.Sort(identifiers)

	keys := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		keys = append(keys, r.keys.user(identifier))
	}

	users, err := loadAll[models.User](ctx, r.client, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) AddTask(ctx context.Context, identifier, pointerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.SAdd(ctx, r.keys.tasks(identifier), pointerID)
		pipe.SAdd(ctx, r.keys.assignees(pointerID), identifier)

		return nil
	})
	if err != nil {
		return persistence.NewUserError("AddTask", identifier, err)
	}

	return nil
}

func (r *UserRepository) Tasks(ctx context.Context, identifier string) ([]string, error) {
	tasks, err := r.client.SMembers(ctx, r.keys.tasks(identifier)).Result()
	if err != nil {
		return nil, persistence.NewUserError("Tasks", identifier, err)
	}

	slices.Sort(tasks)

	return tasks, nil
}

func (r *UserRepository) Assignees(ctx context.Context, pointerID string) ([]string, error) {
	assignees, err := r.client.SMembers(ctx, r.keys.assignees(pointerID)).Result()
	if err != nil {
		return nil, persistence.NewPointerError("Assignees", pointerID, err)
	}

	slices.Sort(assignees)

	return assignees, nil
}

func (r *UserRepository) RemoveTask(ctx context.Context, pointerID string) error {
	assignees, err := r.client.SMembers(ctx, r.keys.assignees(pointerID)).Result()
	if err != nil {
		return persistence.NewPointerError("RemoveTask", pointerID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, identifier := range assignees {
			pipe.SRem(ctx, r.keys.tasks(identifier), pointerID)
		}

		pipe.Del(ctx, r.keys.assignees(pointerID))

		return nil
	})
	if err != nil {
		return persistence.NewPointerError("RemoveTask", pointerID, err)
	}

	return nil
}

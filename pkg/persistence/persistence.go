// Package persistence provides the storage abstraction for the live state of
// executions: their pointers, the executions themselves and the users tasks
// are assigned to.
package persistence

import (
	"context"

	"github.com/dukex/pvm/pkg/models"
)

type Persistence interface {
	Pointers() PointerRepository
	Executions() ExecutionRepository
	Users() UserRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PointerRepository stores the live positions of executions.
type PointerRepository interface {
	Save(ctx context.Context, pointer *models.Pointer) error
	GetByID(ctx context.Context, id string) (*models.Pointer, error)
	Delete(ctx context.Context, id string) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.Pointer, error)
	DeleteByExecution(ctx context.Context, executionID string) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	List(ctx context.Context) ([]*models.Execution, error)
}

// UserRepository stores users and the pointers they are asked to act on.
type UserRepository interface {
	Save(ctx context.Context, user *models.User) error
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// AddTask assigns a pointer to a user.
	AddTask(ctx context.Context, identifier, pointerID string) error
	// Tasks returns the pointer ids assigned to a user.
	Tasks(ctx context.Context, identifier string) ([]string, error)
	// Assignees returns the identifiers of the users a pointer is assigned to.
	Assignees(ctx context.Context, pointerID string) ([]string, error)
	// RemoveTask drops a pointer from every user it was assigned to.
	RemoveTask(ctx context.Context, pointerID string) error
}

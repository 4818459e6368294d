package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence
// interface. Its repositories are mocks too.
type MockPersistence struct {
	mock.Mock

	PointerRepository   *MockPointerRepository
	ExecutionRepository *MockExecutionRepository
	UserRepository      *MockUserRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		PointerRepository:   &MockPointerRepository{},
		ExecutionRepository: &MockExecutionRepository{},
		UserRepository:      &MockUserRepository{},
	}
}

func (m *MockPersistence) Pointers() persistence.PointerRepository {
	return m.PointerRepository
}

func (m *MockPersistence) Executions() persistence.ExecutionRepository {
	return m.ExecutionRepository
}

func (m *MockPersistence) Users() persistence.UserRepository {
	return m.UserRepository
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockPointerRepository is a mock implementation of persistence.PointerRepository interface.
type MockPointerRepository struct {
	mock.Mock
}

func (m *MockPointerRepository) Save(ctx context.Context, pointer *models.Pointer) error {
	args := m.Called(ctx, pointer)

	return args.Error(0)
}

func (m *MockPointerRepository) GetByID(ctx context.Context, id string) (*models.Pointer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Pointer), args.Error(1)
}

func (m *MockPointerRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPointerRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Pointer, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Pointer), args.Error(1)
}

func (m *MockPointerRepository) DeleteByExecution(ctx context.Context, executionID string) error {
	args := m.Called(ctx, executionID)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockExecutionRepository) List(ctx context.Context) ([]*models.Execution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

// MockUserRepository is a mock implementation of persistence.UserRepository interface.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)

	return args.Error(0)
}

func (m *MockUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) AddTask(ctx context.Context, identifier, pointerID string) error {
	args := m.Called(ctx, identifier, pointerID)

	return args.Error(0)
}

func (m *MockUserRepository) Tasks(ctx context.Context, identifier string) ([]string, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) Assignees(ctx context.Context, pointerID string) ([]string, error) {
	args := m.Called(ctx, pointerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) RemoveTask(ctx context.Context, pointerID string) error {
	args := m.Called(ctx, pointerID)

	return args.Error(0)
}

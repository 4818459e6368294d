package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/pvm/pkg/models"
)

// MockHierarchyProvider is a mock implementation of auth.HierarchyProvider interface.
type MockHierarchyProvider struct {
	mock.Mock
}

func (m *MockHierarchyProvider) ID() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockHierarchyProvider) FindUsers(ctx context.Context, params map[string]string) ([]*models.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockHierarchyProvider) ValidateUser(ctx context.Context, user *models.User, params map[string]string) error {
	args := m.Called(ctx, user, params)

	return args.Error(0)
}

// MockIdentityProvider is a mock implementation of auth.IdentityProvider interface.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) ID() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, credentials map[string]string) (*models.User, error) {
	args := m.Called(ctx, credentials)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

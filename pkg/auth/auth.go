// Package auth defines how people are identified and how the candidates
// for a node are found and checked.
package auth

import (
	"context"
	"fmt"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// IdentityProvider turns login credentials into a user.
type IdentityProvider interface {
	ID() string
	Authenticate(ctx context.Context, credentials map[string]string) (*models.User, error)
}

// HierarchyProvider resolves who may act on a node from its auth-filter
// params.
type HierarchyProvider interface {
	ID() string
	// FindUsers returns the users a node should be assigned to.
	FindUsers(ctx context.Context, params map[string]string) ([]*models.User, error)
	// ValidateUser fails with an AuthenticationError when user may not act.
	ValidateUser(ctx context.Context, user *models.User, params map[string]string) error
}

// GetOrCreateUser returns the stored user with found's identifier, saving
// found first when nobody has that identifier yet.
func GetOrCreateUser(ctx context.Context, users persistence.UserRepository, found *models.User) (*models.User, error) {
	user, err := users.GetByIdentifier(ctx, found.Identifier)
	if err == nil {
		return user, nil
	}

	if !persistence.IsUserNotFound(err) {
		return nil, fmt.Errorf("failed to look up user %s: %w", found.Identifier, err)
	}

	if err := users.Save(ctx, found); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", found.Identifier, err)
	}

	return found, nil
}

package backends

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// AnyoneHierarchy lets every user act and assigns the node to all known
// users.
type AnyoneHierarchy struct {
	users persistence.UserRepository
}

func NewAnyoneHierarchy(users persistence.UserRepository) *AnyoneHierarchy {
	return &AnyoneHierarchy{users: users}
}

func (a *AnyoneHierarchy) ID() string {
	return "anyone"
}

func (a *AnyoneHierarchy) FindUsers(ctx context.Context, _ map[string]string) ([]*models.User, error) {
	return a.users.List(ctx)
}

func (a *AnyoneHierarchy) ValidateUser(context.Context, *models.User, map[string]string) error {
	return nil
}

// BackrefHierarchy hands the node to the user named by the identifier
// param, usually the actor of an earlier node.
type BackrefHierarchy struct {
	users persistence.UserRepository
}

func NewBackrefHierarchy(users persistence.UserRepository) *BackrefHierarchy {
	return &BackrefHierarchy{users: users}
}

func (b *BackrefHierarchy) ID() string {
	return "backref"
}

func (b *BackrefHierarchy) FindUsers(ctx context.Context, params map[string]string) ([]*models.User, error) {
	identifier := params["identifier"]
	if identifier == "" {
		return nil, &auth.MisconfiguredProviderError{Provider: b.ID(), Reason: "identifier param is required"}
	}

	user, err := b.users.GetByIdentifier(ctx, identifier)
	if persistence.IsUserNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", identifier, err)
	}

	return []*models.User{user}, nil
}

func (b *BackrefHierarchy) ValidateUser(_ context.Context, user *models.User, params map[string]string) error {
	if params["identifier"] == "" {
		return &auth.MisconfiguredProviderError{Provider: b.ID(), Reason: "identifier param is required"}
	}

	if user.Identifier != params["identifier"] {
		return auth.NewForbiddenError(user.Identifier)
	}

	return nil
}

// StaticHierarchy hands the node to the comma separated users of the
// identifiers param, creating the ones never seen before.
type StaticHierarchy struct {
	users persistence.UserRepository
}

func NewStaticHierarchy(users persistence.UserRepository) *StaticHierarchy {
	return &StaticHierarchy{users: users}
}

func (s *StaticHierarchy) ID() string {
	return "static"
}

func (s *StaticHierarchy) FindUsers(ctx context.Context, params map[string]string) ([]*models.User, error) {
	identifiers, err := s.identifiers(params)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(identifiers))

	for _, identifier := range identifiers {
		user, err := auth.GetOrCreateUser(ctx, s.users, &models.User{Identifier: identifier, Fullname: identifier})
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *StaticHierarchy) ValidateUser(_ context.Context, user *models.User, params map[string]string) error {
	identifiers, err := s.identifiers(params)
	if err != nil {
		return err
	}

	if !slices.Contains(identifiers, user.Identifier) {
		return auth.NewForbiddenError(user.Identifier)
	}

	return nil
}

func (s *StaticHierarchy) identifiers(params map[string]string) ([]string, error) {
	var identifiers []string

	for _, identifier := range strings.Split(params["identifiers"], ",") {
		if identifier = strings.TrimSpace(identifier); identifier != "" {
			identifiers = append(identifiers, identifier)
		}
	}

	if len(identifiers) == 0 {
		return nil, &auth.MisconfiguredProviderError{Provider: s.ID(), Reason: "identifiers param is required"}
	}

	return identifiers, nil
}

package backends_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/auth/backends"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/persistence/redis"
)

func setupUsers(t *testing.T) persistence.UserRepository {
	t.Helper()

	server := miniredis.RunT(t)
	p := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: server.Addr()}), slog.Default())

	return p.Users()
}

func TestAnyoneIdentity(t *testing.T) {
	provider := backends.NewAnyoneIdentity()

	user, err := provider.Authenticate(context.Background(), map[string]string{"username": "juan"})
	require.NoError(t, err)
	assert.Equal(t, "juan", user.Identifier)
	assert.Equal(t, "juan", user.Fullname)

	_, err = provider.Authenticate(context.Background(), map[string]string{})
	require.Error(t, err)
	assert.True(t, auth.IsAuthenticationError(err))
}

func TestImpersonateIdentity(t *testing.T) {
	provider := backends.NewImpersonateIdentity("secret")

	user, err := provider.Authenticate(context.Background(), map[string]string{"username": "juan", "password": "secret"})
	require.NoError(t, err)
	assert.Equal(t, "juan", user.Identifier)

	_, err = provider.Authenticate(context.Background(), map[string]string{"username": "juan", "password": "guess"})
	assert.True(t, auth.IsAuthenticationError(err))

	_, err = provider.Authenticate(context.Background(), map[string]string{"username": "juan"})
	assert.True(t, auth.IsAuthenticationError(err))

	_, err = backends.NewImpersonateIdentity("").Authenticate(context.Background(), map[string]string{"username": "juan", "password": ""})
	assert.True(t, auth.IsMisconfiguredProvider(err))
}

func TestLDAPIdentity_Credentials(t *testing.T) {
	provider := backends.NewLDAPIdentity(backends.LDAPConfig{URL: "ldap://127.0.0.1:1", Domain: "EXAMPLE"})

	_, err := provider.Authenticate(context.Background(), map[string]string{"password": "x"})
	assert.True(t, auth.IsAuthenticationError(err))

	_, err = provider.Authenticate(context.Background(), map[string]string{"username": "juan"})
	assert.True(t, auth.IsAuthenticationError(err))

	_, err = provider.Authenticate(context.Background(), map[string]string{"username": "juan", "password": "x"})
	require.Error(t, err)
	assert.False(t, auth.IsAuthenticationError(err))

	_, err = backends.NewLDAPIdentity(backends.LDAPConfig{}).Authenticate(context.Background(), map[string]string{"username": "juan", "password": "x"})
	assert.True(t, auth.IsMisconfiguredProvider(err))
}

func TestAnyoneHierarchy(t *testing.T) {
	ctx := context.Background()
	users := setupUsers(t)

	require.NoError(t, users.Save(ctx, &models.User{Identifier: "juan"}))
	require.NoError(t, users.Save(ctx, &models.User{Identifier: "pedro"}))

	provider := backends.NewAnyoneHierarchy(users)

	found, err := provider.FindUsers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	assert.NoError(t, provider.ValidateUser(ctx, &models.User{Identifier: "stranger"}, nil))
}

func TestBackrefHierarchy(t *testing.T) {
	ctx := context.Background()
	users := setupUsers(t)

	require.NoError(t, users.Save(ctx, &models.User{Identifier: "juan"}))

	provider := backends.NewBackrefHierarchy(users)
	params := map[string]string{"identifier": "juan"}

	found, err := provider.FindUsers(ctx, params)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "juan", found[0].Identifier)

	found, err = provider.FindUsers(ctx, map[string]string{"identifier": "ghost"})
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.NoError(t, provider.ValidateUser(ctx, &models.User{Identifier: "juan"}, params))
	assert.True(t, auth.IsAuthenticationError(provider.ValidateUser(ctx, &models.User{Identifier: "pedro"}, params)))

	_, err = provider.FindUsers(ctx, map[string]string{})
	assert.True(t, auth.IsMisconfiguredProvider(err))
}

func TestStaticHierarchy(t *testing.T) {
	ctx := context.Background()
	users := setupUsers(t)

	provider := backends.NewStaticHierarchy(users)
	params := map[string]string{"identifiers": "juan, pedro"}

	found, err := provider.FindUsers(ctx, params)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "pedro", found[1].Identifier)

	stored, err := users.GetByIdentifier(ctx, "pedro")
	require.NoError(t, err)
	assert.Equal(t, "pedro", stored.Fullname)

	assert.NoError(t, provider.ValidateUser(ctx, &models.User{Identifier: "juan"}, params))
	assert.True(t, auth.IsAuthenticationError(provider.ValidateUser(ctx, &models.User{Identifier: "maria"}, params)))
	assert.True(t, auth.IsMisconfiguredProvider(provider.ValidateUser(ctx, &models.User{Identifier: "juan"}, map[string]string{})))
}

func TestGetOrCreateUser(t *testing.T) {
	ctx := context.Background()
	users := setupUsers(t)

	created, err := auth.GetOrCreateUser(ctx, users, &models.User{Identifier: "juan", Fullname: "Juan"})
	require.NoError(t, err)
	assert.Equal(t, "Juan", created.Fullname)

	existing, err := auth.GetOrCreateUser(ctx, users, &models.User{Identifier: "juan", Fullname: "Someone else"})
	require.NoError(t, err)
	assert.Equal(t, "Juan", existing.Fullname)
}

package registry

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	id string
}

func (m *mockProvider) ID() string {
	return m.id
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := New[*mockProvider](slog.Default())

	registry.Register(&mockProvider{id: "static"})
	registry.Register(&mockProvider{id: "anyone"})

	provider, err := registry.Get("static")
	require.NoError(t, err)
	assert.Equal(t, "static", provider.ID())

	assert.Equal(t, []string{"anyone", "static"}, registry.IDs())
}

func TestRegistry_GetUnregistered(t *testing.T) {
	registry := New[*mockProvider](slog.Default())

	_, err := registry.Get("ldap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRegistered))
	assert.Contains(t, err.Error(), "'ldap'")
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	registry := New[*mockProvider](slog.Default())

	first := &mockProvider{id: "anyone"}
	second := &mockProvider{id: "anyone"}

	registry.Register(first)
	registry.Register(second)

	provider, err := registry.Get("anyone")
	require.NoError(t, err)
	assert.Same(t, second, provider)
}

func TestRegistry_LoadPluginsEmptyDirectory(t *testing.T) {
	registry := New[*mockProvider](slog.Default())

	require.NoError(t, registry.LoadPlugins(t.TempDir(), "Hierarchy"))
	assert.Empty(t, registry.IDs())
}

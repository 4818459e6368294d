// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/auth/backends"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/registry"
)

// AuthConfig selects and configures the identity backends.
type AuthConfig struct {
	// Identities lists the identity backends to enable.
	Identities          []string
	ImpersonatePassword string
	LDAP                backends.LDAPConfig
	PluginsPath         string
}

// NewHierarchyRegistry registers the built in hierarchy backends and those
// exported by plugins under pluginsPath/hierarchyproviders.
func NewHierarchyRegistry(logger *slog.Logger, users persistence.UserRepository, pluginsPath string) (*registry.Registry[auth.HierarchyProvider], error) {
	reg := registry.New[auth.HierarchyProvider](logger)

	if err := loadPlugins(reg, pluginsPath, "HierarchyProvider"); err != nil {
		return nil, err
	}

	reg.Register(backends.NewAnyoneHierarchy(users))
	reg.Register(backends.NewBackrefHierarchy(users))
	reg.Register(backends.NewStaticHierarchy(users))

	return reg, nil
}

// NewIdentityRegistry registers the identity backends named in config.
func NewIdentityRegistry(logger *slog.Logger, config AuthConfig) (*registry.Registry[auth.IdentityProvider], error) {
	reg := registry.New[auth.IdentityProvider](logger)

	if err := loadPlugins(reg, config.PluginsPath, "IdentityProvider"); err != nil {
		return nil, err
	}

	for _, name := range config.Identities {
		switch name {
		case "anyone":
			reg.Register(backends.NewAnyoneIdentity())
		case "impersonate":
			if config.ImpersonatePassword == "" {
				return nil, &auth.MisconfiguredProviderError{Provider: name, Reason: "no password configured"}
			}

			reg.Register(backends.NewImpersonateIdentity(config.ImpersonatePassword))
		case "ldap":
			if config.LDAP.URL == "" {
				return nil, &auth.MisconfiguredProviderError{Provider: name, Reason: "no server URL configured"}
			}

			reg.Register(backends.NewLDAPIdentity(config.LDAP))
		default:
			if _, err := reg.Get(name); err != nil {
				return nil, &auth.MisconfiguredProviderError{Provider: name, Reason: "unknown identity backend"}
			}
		}
	}

	return reg, nil
}

func loadPlugins[T registry.Provider](reg *registry.Registry[T], pluginsPath, symbolName string) error {
	if pluginsPath == "" {
		return nil
	}

	if _, err := os.Stat(pluginsPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := reg.LoadPlugins(pluginsPath, symbolName); err != nil {
		return fmt.Errorf("failed to load %s plugins: %w", symbolName, err)
	}

	return nil
}

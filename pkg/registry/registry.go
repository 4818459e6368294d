// Package registry keeps named providers, built in or loaded from plugins.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"slices"
	"strings"
)

var ErrNotRegistered = errors.New("provider not registered")

// Provider is anything registered under an id.
type Provider interface {
	ID() string
}

type Registry[T Provider] struct {
	logger    *slog.Logger
	providers map[string]T
}

func New[T Provider](log *slog.Logger) *Registry[T] {
	return &Registry[T]{
		logger:    log,
		providers: make(map[string]T),
	}
}

// Register adds provider, replacing any provider with the same id.
func (r *Registry[T]) Register(provider T) {
	r.providers[provider.ID()] = provider
}

func (r *Registry[T]) Get(id string) (T, error) {
	provider, ok := r.providers[id]
	if !ok {
		return provider, fmt.Errorf("%w: '%s'", ErrNotRegistered, id)
	}

	return provider, nil
}

// IDs returns the registered ids in lexical order.
func (r *Registry[T]) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// LoadPlugins registers the symbolName export of every .so file found under
// pluginsPath/<symbolName in lower case>s.
func (r *Registry[T]) LoadPlugins(pluginsPath string, symbolName string) error {
	rootPath := filepath.Join(pluginsPath, strings.ToLower(symbolName)+"s")

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return err
	}

	l := r.logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return fmt.Errorf("failed to find %s in plugin %s: %w", symbolName, p, err)
		}

		provider, ok := v.(T)
		if !ok {
			return fmt.Errorf("plugin %s does not export a %s provider", p, symbolName)
		}

		r.Register(provider)

		l.Info("Loaded plugin", slog.String("plugin", p), slog.String("id", provider.ID()))
	}

	return nil
}

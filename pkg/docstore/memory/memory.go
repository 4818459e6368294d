// Package memory provides an in-process document store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukex/pvm/pkg/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
}

func New() *Store {
	return &Store{collections: map[string]map[string]docstore.Document{}}
}

func (s *Store) Get(_ context.Context, collection, key string, out any) error {
	s.mu.RLock()
	doc, ok := s.collections[collection][key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}

	return doc.Decode(out)
}

func (s *Store) Put(_ context.Context, collection, key string, doc any) error {
	value, err := docstore.Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = map[string]docstore.Document{}
	}

	s.collections[collection][key] = value

	return nil
}

func (s *Store) Query(_ context.Context, collection string, query docstore.Query, out any) error {
	s.mu.RLock()

	docs := make([]docstore.Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		if docstore.Matches(doc.Fields, query.Filter) {
			docs = append(docs, doc)
		}
	}

	s.mu.RUnlock()

	docstore.Sort(docs, query.SortBy, query.Descending)

	return docstore.DecodeAll(docs, out)
}

func (s *Store) Delete(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], key)

	return nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

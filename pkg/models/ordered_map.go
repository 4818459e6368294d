package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap is a string-keyed map that keeps insertion order, including
// through JSON encoding. Setting an existing key keeps its position.
type OrderedMap[V any] struct {
	pairs *orderedmap.OrderedMap[string, V]
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{pairs: orderedmap.New[string, V]()}
}

func (m *OrderedMap[V]) init() {
	if m.pairs == nil {
		m.pairs = orderedmap.New[string, V]()
	}
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	if m == nil || m.pairs == nil {
		var zero V

		return zero, false
	}

	return m.pairs.Get(key)
}

func (m *OrderedMap[V]) Set(key string, value V) {
	m.init()
	m.pairs.Set(key, value)
}

func (m *OrderedMap[V]) Delete(key string) {
	if m.pairs != nil {
		m.pairs.Delete(key)
	}
}

func (m *OrderedMap[V]) Len() int {
	if m == nil || m.pairs == nil {
		return 0
	}

	return m.pairs.Len()
}

func (m *OrderedMap[V]) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Each(func(key string, _ V) {
		keys = append(keys, key)
	})

	return keys
}

func (m *OrderedMap[V]) Values() []V {
	values := make([]V, 0, m.Len())
	m.Each(func(_ string, value V) {
		values = append(values, value)
	})

	return values
}

// Each calls fn for every pair, oldest first.
func (m *OrderedMap[V]) Each(fn func(key string, value V)) {
	if m == nil || m.pairs == nil {
		return
	}

	for pair := m.pairs.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Last returns the most recently inserted pair.
func (m *OrderedMap[V]) Last() (string, V, bool) {
	if m == nil || m.pairs == nil || m.pairs.Len() == 0 {
		var zero V

		return "", zero, false
	}

	pair := m.pairs.Newest()

	return pair.Key, pair.Value, true
}

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	m.init()

	return m.pairs.MarshalJSON()
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	m.pairs = orderedmap.New[string, V]()

	return m.pairs.UnmarshalJSON(data)
}

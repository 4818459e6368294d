// Package docstore stores the documents that describe executions for
// readers: the execution projection and the activity history.
package docstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"
)

const (
	// Executions holds one document per execution keyed by its id.
	Executions = "executions"
	// History holds one document per activity keyed by its id.
	History = "history"
)

var ErrNotFound = errors.New("document not found")

// Query selects documents whose top-level fields equal every Filter value.
// A nil filter value matches absent and null fields.
type Query struct {
	Filter     map[string]any
	SortBy     string
	Descending bool
}

type Store interface {
	// Get decodes the document stored under key into out.
	Get(ctx context.Context, collection, key string, out any) error
	// Put creates or replaces the document stored under key.
	Put(ctx context.Context, collection, key string, doc any) error
	// Query decodes every matching document into out, a pointer to a slice.
	Query(ctx context.Context, collection string, query Query, out any) error
	Delete(ctx context.Context, collection, key string) error
	Close(ctx context.Context) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Document is a stored document. Raw keeps the JSON text, and with it the
// key order of nested objects; Fields holds the decoded top-level values
// used to filter and sort.
type Document struct {
	Raw    json.RawMessage
	Fields map[string]any
}

// NewDocument wraps the JSON text of an object.
func NewDocument(raw []byte) (Document, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Document{}, fmt.Errorf("document is not an object: %w", err)
	}

	return Document{Raw: raw, Fields: fields}, nil
}

// Encode turns a value into its document form.
func Encode(doc any) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("failed to marshal document: %w", err)
	}

	return NewDocument(data)
}

// Decode converts the document into out.
func (d Document) Decode(out any) error {
	if err := json.Unmarshal(d.Raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	return nil
}

// DecodeAll converts documents into out, a pointer to a slice.
func DecodeAll(docs []Document, out any) error {
	raws := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		raws = append(raws, doc.Raw)
	}

	data, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}

	return nil
}

// Matches reports whether doc satisfies every filter value.
func Matches(doc map[string]any, filter map[string]any) bool {
	for field, expected := range filter {
		actual, ok := doc[field]

		if expected == nil {
			if ok && actual != nil {
				return false
			}

			continue
		}

		if !ok || !equal(actual, expected) {
			return false
		}
	}

	return true
}

func equal(actual, expected any) bool {
	data, err := json.Marshal(expected)
	if err != nil {
		return false
	}

	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return false
	}

	return reflect.DeepEqual(actual, normalized)
}

// Sort orders docs by a top-level field. Values that parse as timestamps
// compare as time, numbers compare numerically, anything else as text.
func Sort(docs []Document, field string, descending bool) {
	if field == "" {
		return
	}

	slices.SortStableFunc(docs, func(a, b Document) int {
		result := compare(a.Fields[field], b.Fields[field])
		if descending {
			return -result
		}

		return result
	})
}

func compare(a, b any) int {
	if left, ok := a.(float64); ok {
		if right, ok := b.(float64); ok {
			return cmp.Compare(left, right)
		}
	}

	left, leftIsText := a.(string)
	right, rightIsText := b.(string)

	if leftIsText && rightIsText {
		leftTime, leftErr := time.Parse(time.RFC3339Nano, left)
		rightTime, rightErr := time.Parse(time.RFC3339Nano, right)

		if leftErr == nil && rightErr == nil {
			return leftTime.Compare(rightTime)
		}

		return cmp.Compare(left, right)
	}

	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

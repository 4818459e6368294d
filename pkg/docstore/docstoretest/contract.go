// Package docstoretest holds the behaviour every docstore.Store must share.
package docstoretest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/docstore"
)

type activity struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// RunStoreContract exercises store with fresh collections.
func RunStoreContract(t *testing.T, store docstore.Store) {
	t.Helper()

	ctx := context.Background()
	collection := "contract_" + time.Now().Format("150405.000000")
	base := time.Date(2018, 5, 9, 10, 0, 0, 0, time.UTC)
	finished := base.Add(time.Hour)

	docs := []activity{
		{ID: "a1", ExecutionID: "e1", NodeID: "start_node", StartedAt: base, FinishedAt: &finished, Data: map[string]any{"days": 3.0}},
		{ID: "a2", ExecutionID: "e1", NodeID: "mid_node", StartedAt: base.Add(90 * time.Minute)},
		{ID: "a3", ExecutionID: "e1", NodeID: "other_node", StartedAt: base.Add(500 * time.Millisecond)},
		{ID: "a4", ExecutionID: "e2", NodeID: "start_node", StartedAt: base},
	}

	for _, doc := range docs {
		require.NoError(t, store.Put(ctx, collection, doc.ID, doc))
	}

	t.Run("get", func(t *testing.T) {
		var got activity
		require.NoError(t, store.Get(ctx, collection, "a1", &got))
		assert.Equal(t, "start_node", got.NodeID)
		assert.True(t, base.Equal(got.StartedAt))
		require.NotNil(t, got.FinishedAt)
		assert.InDelta(t, 3.0, got.Data["days"], 0)

		err := store.Get(ctx, collection, "missing", &got)
		assert.True(t, docstore.IsNotFound(err))
	})

	t.Run("query sorted", func(t *testing.T) {
		var got []activity
		require.NoError(t, store.Query(ctx, collection, docstore.Query{
			Filter: map[string]any{"execution_id": "e1"},
			SortBy: "started_at",
		}, &got))

		require.Len(t, got, 3)
		assert.Equal(t, []string{"a1", "a3", "a2"}, []string{got[0].ID, got[1].ID, got[2].ID})

		require.NoError(t, store.Query(ctx, collection, docstore.Query{
			Filter:     map[string]any{"execution_id": "e1"},
			SortBy:     "started_at",
			Descending: true,
		}, &got))
		assert.Equal(t, "a2", got[0].ID)
	})

	t.Run("query open", func(t *testing.T) {
		var got []activity
		require.NoError(t, store.Query(ctx, collection, docstore.Query{
			Filter: map[string]any{"execution_id": "e1", "node_id": "start_node", "finished_at": nil},
		}, &got))
		assert.Empty(t, got)

		require.NoError(t, store.Query(ctx, collection, docstore.Query{
			Filter: map[string]any{"execution_id": "e1", "node_id": "mid_node", "finished_at": nil},
		}, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "a2", got[0].ID)
	})

	t.Run("nested key order", func(t *testing.T) {
		type ordered struct {
			ID    string          `json:"id"`
			State json.RawMessage `json:"state"`
		}

		doc := ordered{ID: "o1", State: json.RawMessage(`{"z_node":{"state":"valid"},"a_node":{"state":"unfilled"}}`)}
		require.NoError(t, store.Put(ctx, collection, doc.ID, doc))

		var got ordered
		require.NoError(t, store.Get(ctx, collection, "o1", &got))
		assert.JSONEq(t, string(doc.State), string(got.State))
		assert.Less(t, strings.Index(string(got.State), "z_node"), strings.Index(string(got.State), "a_node"))
	})

	t.Run("replace and delete", func(t *testing.T) {
		replaced := docs[1]
		replaced.FinishedAt = &finished
		require.NoError(t, store.Put(ctx, collection, replaced.ID, replaced))

		var got activity
		require.NoError(t, store.Get(ctx, collection, "a2", &got))
		require.NotNil(t, got.FinishedAt)

		require.NoError(t, store.Delete(ctx, collection, "a2"))
		assert.True(t, docstore.IsNotFound(store.Get(ctx, collection, "a2", &got)))
	})
}

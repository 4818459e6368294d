package docstore

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	doc := map[string]any{"execution_id": "e1", "count": 2.0, "finished_at": nil}

	assert.True(t, Matches(doc, map[string]any{"execution_id": "e1"}))
	assert.True(t, Matches(doc, map[string]any{"count": 2}))
	assert.True(t, Matches(doc, map[string]any{"finished_at": nil, "missing": nil}))
	assert.False(t, Matches(doc, map[string]any{"execution_id": "e2"}))
	assert.False(t, Matches(doc, map[string]any{"count": nil}))
	assert.False(t, Matches(doc, map[string]any{"other": "x"}))
}

func TestSort(t *testing.T) {
	var docs []Document

	for _, raw := range []string{
		`{"id": "b", "at": "2018-05-09T10:00:00.5Z"}`,
		`{"id": "c", "at": "2018-05-09T10:00:01Z"}`,
		`{"id": "a", "at": "2018-05-09T10:00:00Z"}`,
	} {
		doc, err := NewDocument([]byte(raw))
		require.NoError(t, err)

		docs = append(docs, doc)
	}

	Sort(docs, "at", false)
	assert.Equal(t, []any{"a", "b", "c"}, []any{docs[0].Fields["id"], docs[1].Fields["id"], docs[2].Fields["id"]})

	Sort(docs, "id", true)
	assert.Equal(t, "c", docs[0].Fields["id"])
}

func TestDocument_KeepsKeyOrder(t *testing.T) {
	doc, err := NewDocument([]byte(`{"state": {"z_node": 1, "a_node": 2}}`))
	require.NoError(t, err)

	var out struct {
		State json.RawMessage `json:"state"`
	}
	require.NoError(t, doc.Decode(&out))
	assert.JSONEq(t, `{"z_node": 1, "a_node": 2}`, string(out.State))
	assert.Less(t, strings.Index(string(out.State), "z_node"), strings.Index(string(out.State), "a_node"))

	_, err = NewDocument([]byte(`[1, 2]`))
	assert.Error(t, err)
}

package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, body string) (*OpenAIEmbedder, *map[string]any) {
	t.Helper()
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEmbedder("test-key", "", 0, option.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return e, &req
}

func TestEmbedKeepsInputOrder(t *testing.T) {
	e, req := newTestEmbedder(t, `{
		"object": "list",
		"model": "text-embedding-ada-002",
		"data": [
			{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]},
			{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
		],
		"usage": {"prompt_tokens": 4, "total_tokens": 4}
	}`)

	vecs, err := e.Embed(context.Background(), []string{"first chunk", "second chunk"})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vecs[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vecs[1], 1e-6)
	assert.Equal(t, "text-embedding-ada-002", (*req)["model"])
	assert.Equal(t, []any{"first chunk", "second chunk"}, (*req)["input"])
	assert.Equal(t, "text-embedding-ada-002", e.Model())
}

func TestEmbedCountMismatch(t *testing.T) {
	e, _ := newTestEmbedder(t, `{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`)

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestEmbedDuplicateIndex(t *testing.T) {
	e, _ := newTestEmbedder(t, `{"object":"list","model":"m","data":[
		{"object":"embedding","index":0,"embedding":[1]},
		{"object":"embedding","index":0,"embedding":[2]}
	],"usage":{"prompt_tokens":1,"total_tokens":1}}`)

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestEmbedNoInputs(t *testing.T) {
	e, _ := newTestEmbedder(t, `{}`)

	vecs, err := e.Embed(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) (*OllamaEmbedder, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	embedder, err := NewOllamaEmbedder(srv.URL, "test-model", time.Second)
	require.NoError(t, err)
	return embedder, &calls
}

func TestEmbedReturnsVector(t *testing.T) {
	embedder, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"embedding":[0.25,0.5,0.75]}`)
	})

	vector, err := embedder.Embed(context.Background(), "Water boils at 100°C.")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vector)
}

func TestEmbedEmptyInputSkipsRemoteCall(t *testing.T) {
	embedder, calls := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := embedder.Embed(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Zero(t, atomic.LoadInt64(calls))
}

func TestEmbedRemoteFailure(t *testing.T) {
	embedder, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model not found"}`)
	})

	_, err := embedder.Embed(context.Background(), "some text")
	assert.Error(t, err)
}

func TestEmbedEmptyVectorResponse(t *testing.T) {
	embedder, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"embedding":[]}`)
	})

	_, err := embedder.Embed(context.Background(), "some text")
	assert.Error(t, err)
}

package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oscillatelabsllc/recall/internal/config"
	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemStore(t *testing.T) {
	store := NewChromemStore()
	defer store.Close()
	ctx := context.Background()

	got, err := store.Match(ctx, models.MatchParams{UserID: 1, QueryEmbedding: []float32{1, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, got, "empty store should match nothing")

	seed := []*models.Memory{
		{UserID: 1, Content: "The user's name is Charlie", Embedding: []float32{1, 0, 0}},
		{UserID: 1, Content: "User said: 'nice weather'", Embedding: []float32{0, 1, 0}},
		{UserID: 2, Content: "The user's name is Dana", Embedding: []float32{1, 0, 0}},
	}
	for _, m := range seed {
		require.NoError(t, store.Insert(ctx, m))
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}

	got, err = store.Match(ctx, models.MatchParams{UserID: 1, QueryEmbedding: []float32{1, 0.1, 0}})
	require.NoError(t, err)
	require.Len(t, got, 1, "orthogonal memory is below the threshold")
	assert.Equal(t, "The user's name is Charlie", got[0].Content)
	assert.EqualValues(t, 1, got[0].UserID)
	assert.GreaterOrEqual(t, got[0].Similarity, models.DefaultMatchThreshold)

	// caller's vector must not be normalized in place
	assert.Equal(t, []float32{1, 0, 0}, seed[0].Embedding)

	_, err = store.Match(ctx, models.MatchParams{UserID: 3, QueryEmbedding: []float32{1, 0, 0}})
	require.NoError(t, err)

	assert.Error(t, store.Insert(ctx, &models.Memory{UserID: 1, Content: "no vector"}))
}

func TestSupabaseStore_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/match_memories", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 0.3, body["match_threshold"])
		assert.EqualValues(t, 8, body["match_count"])
		assert.EqualValues(t, 1, body["p_user_id"])
		assert.Len(t, body["query_embedding"], 3)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 12, "content": "The user's name is Charlie", "similarity": 0.91}]`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL+"/", "secret")
	got, err := store.Match(context.Background(), models.MatchParams{
		UserID:         1,
		QueryEmbedding: []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "12", got[0].ID)
	assert.Equal(t, "The user's name is Charlie", got[0].Content)
	assert.InDelta(t, 0.91, got[0].Similarity, 1e-9)
	assert.EqualValues(t, 1, got[0].UserID)
}

func TestSupabaseStore_Insert(t *testing.T) {
	var inserted insertRow
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/memories", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "secret")
	mem := &models.Memory{UserID: 5, Content: "User said: 'hi'", Embedding: []float32{1, 2}}
	require.NoError(t, store.Insert(context.Background(), mem))

	assert.EqualValues(t, 5, inserted.UserID)
	assert.Equal(t, "User said: 'hi'", inserted.Content)
	assert.Equal(t, []float32{1, 2}, inserted.Embedding)
	assert.False(t, mem.CreatedAt.IsZero())
}

func TestSupabaseStore_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "wrong")
	ctx := context.Background()

	_, err := store.Match(ctx, models.MatchParams{UserID: 1, QueryEmbedding: []float32{1}})
	assert.ErrorContains(t, err, "status 401")

	err = store.Insert(ctx, &models.Memory{UserID: 1, Content: "x", Embedding: []float32{1}})
	assert.ErrorContains(t, err, "status 401")

	assert.ErrorContains(t, store.Ping(ctx), "status 401")
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[1,0.5,-0.25]", vectorLiteral([]float32{1, 0.5, -0.25}))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, &config.Config{MemoryBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &ChromemStore{}, store)

	store, err = Open(ctx, &config.Config{MemoryBackend: config.BackendSupabase, SupabaseURL: "http://x", SupabaseKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &SupabaseStore{}, store)

	store, err = Open(ctx, &config.Config{MemoryBackend: config.BackendDuckDB, DuckDBPath: t.TempDir() + "/m.duckdb", EmbeddingDimensions: 3})
	require.NoError(t, err)
	assert.IsType(t, &DuckStore{}, store)
	store.Close()

	_, err = Open(ctx, &config.Config{MemoryBackend: "redis"})
	assert.Error(t, err)
}

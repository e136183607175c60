package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oscillatelabsllc/recall/internal/models"
)

const testDims = 4

func setupTestStore(t *testing.T) *DuckStore {
	t.Helper()
	store, err := NewDuckStore(t.TempDir()+"/test.duckdb", testDims)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func countForUser(t *testing.T, store *DuckStore, userID int64) int {
	t.Helper()
	var n int
	if err := store.db.QueryRowContext(context.Background(), "SELECT count(*) FROM memories WHERE user_id = ?", userID).Scan(&n); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func TestNewDuckStore(t *testing.T) {
	tmpFile := t.TempDir() + "/test.duckdb"

	store, err := NewDuckStore(tmpFile, testDims)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(tmpFile); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewDuckStore_RejectsZeroDimensions(t *testing.T) {
	if _, err := NewDuckStore(t.TempDir()+"/test.duckdb", 0); err == nil {
		t.Fatal("Expected error for zero dimensions")
	}
}

func TestDuckStoreInsert(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	t.Run("generates ID and CreatedAt", func(t *testing.T) {
		mem := &models.Memory{
			UserID:    1,
			Content:   "User said: 'hello'",
			Embedding: []float32{1, 0, 0, 0},
		}

		if err := store.Insert(ctx, mem); err != nil {
			t.Fatalf("Failed to insert memory: %v", err)
		}

		if mem.ID == "" {
			t.Error("ID was not generated")
		}
		if mem.CreatedAt.IsZero() {
			t.Error("CreatedAt was not set")
		}
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		mem := &models.Memory{
			UserID:    1,
			Content:   "bad vector",
			Embedding: []float32{1, 0},
		}

		if err := store.Insert(ctx, mem); err == nil {
			t.Error("Expected dimension error")
		}
	})

	t.Run("duplicates are allowed", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			mem := &models.Memory{
				UserID:    2,
				Content:   "The user's name is Alice",
				Embedding: []float32{0, 1, 0, 0},
			}
			if err := store.Insert(ctx, mem); err != nil {
				t.Fatalf("Insert %d failed: %v", i, err)
			}
		}

		if n := countForUser(t, store, 2); n != 2 {
			t.Errorf("Expected 2 memories, got %d", n)
		}
	})
}

func TestDuckStoreMatch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	created := time.Now().Add(-time.Hour).Truncate(time.Microsecond)

	seed := []models.Memory{
		{UserID: 1, Content: "The user's name is Charlie", Embedding: []float32{1, 0, 0, 0}, CreatedAt: created},
		{UserID: 1, Content: "User said: 'I like tea'", Embedding: []float32{0.8, 0.6, 0, 0}},
		{UserID: 1, Content: "unrelated", Embedding: []float32{0, 0, 1, 0}},
		{UserID: 2, Content: "The user's name is Dana", Embedding: []float32{1, 0, 0, 0}},
	}
	for i := range seed {
		if err := store.Insert(ctx, &seed[i]); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}

	t.Run("orders by similarity and applies threshold", func(t *testing.T) {
		got, err := store.Match(ctx, models.MatchParams{
			UserID:         1,
			QueryEmbedding: []float32{1, 0, 0, 0},
		})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}

		if len(got) != 2 {
			t.Fatalf("Expected 2 matches, got %d: %+v", len(got), got)
		}
		if got[0].Content != "The user's name is Charlie" {
			t.Errorf("Expected closest match first, got %q", got[0].Content)
		}
		if got[0].Similarity < got[1].Similarity {
			t.Errorf("Results not ordered: %v then %v", got[0].Similarity, got[1].Similarity)
		}
		if !got[0].CreatedAt.Equal(created) {
			t.Errorf("CreatedAt: got %v, want %v", got[0].CreatedAt, created)
		}
	})

	t.Run("scoped to user", func(t *testing.T) {
		got, err := store.Match(ctx, models.MatchParams{
			UserID:         2,
			QueryEmbedding: []float32{1, 0, 0, 0},
		})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if len(got) != 1 || got[0].Content != "The user's name is Dana" {
			t.Errorf("Expected only user 2's memory, got %+v", got)
		}
	})

	t.Run("respects count", func(t *testing.T) {
		got, err := store.Match(ctx, models.MatchParams{
			UserID:         1,
			QueryEmbedding: []float32{1, 0, 0, 0},
			Count:          1,
		})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 match, got %d", len(got))
		}
	})

	t.Run("unknown user yields nothing", func(t *testing.T) {
		got, err := store.Match(ctx, models.MatchParams{
			UserID:         99,
			QueryEmbedding: []float32{1, 0, 0, 0},
		})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected no matches, got %d", len(got))
		}
	})
}

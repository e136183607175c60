// Package db holds the memory store backends. All of them share the same
// contract: memories are scoped to one user, recall is a similarity lookup
// bounded by a threshold and a count, and records are append-only.
package db

import (
	"context"
	"fmt"

	"github.com/oscillatelabsllc/recall/internal/config"
	"github.com/oscillatelabsllc/recall/internal/models"
)

// Store is a per-user vector memory
type Store interface {
	// Match returns up to params.Count memories for params.UserID whose
	// similarity to params.QueryEmbedding is at least params.Threshold,
	// most similar first.
	Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error)
	// Insert appends a memory. ID and CreatedAt are filled in when empty.
	Insert(ctx context.Context, mem *models.Memory) error
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}

// Open constructs the backend selected by cfg.MemoryBackend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MemoryBackend {
	case config.BackendSupabase:
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey), nil
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendDuckDB:
		return NewDuckStore(cfg.DuckDBPath, cfg.EmbeddingDimensions)
	case config.BackendMemory:
		return NewChromemStore(), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.MemoryBackend)
	}
}

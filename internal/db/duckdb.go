package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/rs/zerolog/log"
)

// DuckStore keeps memories in a local DuckDB file
type DuckStore struct {
	db         *sql.DB
	dimensions int
}

// NewDuckStore opens (or creates) the database at dbPath. Embeddings are
// stored as FLOAT[dimensions].
func NewDuckStore(dbPath string, dimensions int) (*DuckStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &DuckStore{db: db, dimensions: dimensions}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize sets up the schema
func (s *DuckStore) initialize() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS memories (
			id VARCHAR PRIMARY KEY,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			embedding FLOAT[%d] NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_memories_user_id ON memories (user_id);
	`, s.dimensions)

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Per-user scans are small; array_cosine_similarity is core DuckDB so
	// no vss extension (and no network access) is needed.
	log.Debug().Int("dimensions", s.dimensions).Msg("duckdb memory store ready")

	return nil
}

// Insert adds a new memory
func (s *DuckStore) Insert(ctx context.Context, mem *models.Memory) error {
	if len(mem.Embedding) != s.dimensions {
		return fmt.Errorf("embedding has %d dimensions, store expects %d", len(mem.Embedding), s.dimensions)
	}
	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}

	embeddingJSON, err := json.Marshal(mem.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO memories (id, user_id, content, embedding, created_at)
		VALUES (?, ?, ?, ?::FLOAT[%d], ?)
	`, s.dimensions)

	_, err = s.db.ExecContext(ctx, query,
		mem.ID, mem.UserID, mem.Content, string(embeddingJSON), mem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	return nil
}

// Match finds the user's memories most similar to the query embedding
func (s *DuckStore) Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error) {
	params = params.WithDefaults()
	if len(params.QueryEmbedding) != s.dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d", len(params.QueryEmbedding), s.dimensions)
	}

	embeddingJSON, err := json.Marshal(params.QueryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, content, created_at, similarity
		FROM (
			SELECT id, user_id, content, created_at,
			       array_cosine_similarity(embedding, ?::FLOAT[%d])::DOUBLE AS similarity
			FROM memories
			WHERE user_id = ?
		)
		WHERE similarity >= ?
		ORDER BY similarity DESC
		LIMIT ?
	`, s.dimensions)

	rows, err := s.db.QueryContext(ctx, query, string(embeddingJSON), params.UserID, params.Threshold, params.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to execute match query: %w", err)
	}
	defer rows.Close()

	var memories []models.Memory
	for rows.Next() {
		var mem models.Memory
		var similarity float64
		if err := rows.Scan(&mem.ID, &mem.UserID, &mem.Content, &mem.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		mem.Similarity = similarity
		memories = append(memories, mem)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

// Ping checks the database connection
func (s *DuckStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *DuckStore) Close() error {
	return s.db.Close()
}

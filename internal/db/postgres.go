package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oscillatelabsllc/recall/internal/models"
)

// PostgresStore talks to a pgvector-enabled Postgres directly, e.g. the
// database behind a Supabase project. Table layout:
//
//	create table memories (
//	    id text primary key,
//	    user_id bigint not null,
//	    content text not null,
//	    embedding vector not null,
//	    created_at timestamptz not null default now()
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Insert adds a new memory
func (s *PostgresStore) Insert(ctx context.Context, mem *models.Memory) error {
	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO memories (id, user_id, content, embedding, created_at) VALUES ($1, $2, $3, $4::vector, $5)`,
		mem.ID, mem.UserID, mem.Content, vectorLiteral(mem.Embedding), mem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	return nil
}

// Match ranks the user's memories by cosine similarity
func (s *PostgresStore) Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error) {
	params = params.WithDefaults()

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, content, created_at, 1 - (embedding <=> $1::vector) AS similarity
		FROM memories
		WHERE user_id = $2 AND 1 - (embedding <=> $1::vector) >= $3
		ORDER BY embedding <=> $1::vector
		LIMIT $4`,
		vectorLiteral(params.QueryEmbedding), params.UserID, params.Threshold, params.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute match query: %w", err)
	}
	defer rows.Close()

	var memories []models.Memory
	for rows.Next() {
		var mem models.Memory
		if err := rows.Scan(&mem.ID, &mem.UserID, &mem.Content, &mem.CreatedAt, &mem.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, mem)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

// Ping checks the pool can reach the server
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// vectorLiteral renders v in pgvector's text format: [1,2,3]
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

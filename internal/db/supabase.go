package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oscillatelabsllc/recall/internal/models"
)

// SupabaseStore talks to a Supabase project's PostgREST API. It expects a
// `memories` table and a `match_memories` SQL function:
//
//	create function match_memories(query_embedding vector, match_threshold float,
//	    match_count int, p_user_id bigint)
//	returns table (id bigint, content text, similarity float)
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseStore creates a store for the project at baseURL
func NewSupabaseStore(baseURL, apiKey string) *SupabaseStore {
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
	UserID         int64     `json:"p_user_id"`
}

type matchRow struct {
	ID         interface{} `json:"id"`
	UserID     int64       `json:"user_id"`
	Content    string      `json:"content"`
	Similarity float64     `json:"similarity"`
	CreatedAt  *time.Time  `json:"created_at"`
}

type insertRow struct {
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// Match calls the match_memories RPC
func (s *SupabaseStore) Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error) {
	params = params.WithDefaults()

	var rows []matchRow
	err := s.post(ctx, "/rest/v1/rpc/match_memories", matchRequest{
		QueryEmbedding: params.QueryEmbedding,
		MatchThreshold: params.Threshold,
		MatchCount:     params.Count,
		UserID:         params.UserID,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("match_memories failed: %w", err)
	}

	memories := make([]models.Memory, 0, len(rows))
	for _, row := range rows {
		mem := models.Memory{
			UserID:     params.UserID,
			Content:    row.Content,
			Similarity: row.Similarity,
		}
		if row.ID != nil {
			mem.ID = fmt.Sprint(row.ID)
		}
		if row.CreatedAt != nil {
			mem.CreatedAt = *row.CreatedAt
		}
		memories = append(memories, mem)
	}

	return memories, nil
}

// Insert appends a row to the memories table. IDs and timestamps are
// assigned by Postgres; only CreatedAt is mirrored locally.
func (s *SupabaseStore) Insert(ctx context.Context, mem *models.Memory) error {
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}

	err := s.post(ctx, "/rest/v1/memories", insertRow{
		UserID:    mem.UserID,
		Content:   mem.Content,
		Embedding: mem.Embedding,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	return nil
}

// Ping requests zero rows from the memories table
func (s *SupabaseStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/memories?select=id&limit=0", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach supabase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op; the HTTP client holds no dedicated resources
func (s *SupabaseStore) Close() error {
	return nil
}

func (s *SupabaseStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

// post sends body as JSON and decodes the response into out when non-nil
func (s *SupabaseStore) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	if out == nil {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call supabase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

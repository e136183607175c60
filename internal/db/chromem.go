package db

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oscillatelabsllc/recall/internal/models"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore keeps memories in process with chromem-go. Nothing is
// persisted; it backs local development and tests.
type ChromemStore struct {
	db          *chromem.DB
	collections map[int64]*chromem.Collection // one per user
	mu          sync.RWMutex
}

// NewChromemStore creates an empty in-memory store
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[int64]*chromem.Collection),
	}
}

func (s *ChromemStore) collection(userID int64, create bool) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok || !create {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(fmt.Sprintf("user_%d", userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Insert adds a memory to the user's collection
func (s *ChromemStore) Insert(ctx context.Context, mem *models.Memory) error {
	if len(mem.Embedding) == 0 {
		return fmt.Errorf("memory has no embedding")
	}
	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}

	col, err := s.collection(mem.UserID, true)
	if err != nil {
		return err
	}

	// chromem normalizes the vector in place
	embedding := append([]float32(nil), mem.Embedding...)

	err = col.AddDocument(ctx, chromem.Document{
		ID:        mem.ID,
		Content:   mem.Content,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":    strconv.FormatInt(mem.UserID, 10),
			"created_at": mem.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	return nil
}

// Match queries the user's collection. chromem rejects nResults larger than
// the collection, so the count is clamped first.
func (s *ChromemStore) Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error) {
	params = params.WithDefaults()

	col, err := s.collection(params.UserID, false)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, nil
	}

	n := params.Count
	if size := col.Count(); size < n {
		n = size
	}
	if n == 0 {
		return nil, nil
	}

	query := append([]float32(nil), params.QueryEmbedding...)
	results, err := col.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var memories []models.Memory
	for _, r := range results {
		if float64(r.Similarity) < params.Threshold {
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, r.Metadata["created_at"])
		memories = append(memories, models.Memory{
			ID:         r.ID,
			UserID:     params.UserID,
			Content:    r.Content,
			Similarity: float64(r.Similarity),
			CreatedAt:  createdAt,
		})
	}

	return memories, nil
}

// Ping always succeeds
func (s *ChromemStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *ChromemStore) Close() error {
	return nil
}

package models

import "time"

const (
	// DefaultMatchThreshold is the minimum cosine similarity for a recalled memory
	DefaultMatchThreshold = 0.3
	// DefaultMatchCount caps how many memories are recalled per turn
	DefaultMatchCount = 8
	// MaxMatchCount caps caller-supplied result counts on the search surfaces
	MaxMatchCount = 50
)

// Memory represents a stored snippet of a past conversation for one user
type Memory struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Similarity float64   `json:"similarity,omitempty"` // set on recall only
	CreatedAt  time.Time `json:"created_at"`
}

// MatchParams defines parameters for a similarity lookup
type MatchParams struct {
	UserID         int64     `json:"user_id"`
	QueryEmbedding []float32 `json:"query_embedding"`
	Threshold      float64   `json:"match_threshold"`
	Count          int       `json:"match_count"`
}

// WithDefaults fills zero threshold and count with the package defaults
func (p MatchParams) WithDefaults() MatchParams {
	if p.Threshold == 0 {
		p.Threshold = DefaultMatchThreshold
	}
	if p.Count <= 0 {
		p.Count = DefaultMatchCount
	}
	return p
}

// Turn is one user message and the reply it produced
type Turn struct {
	UserID      int64  `json:"user_id"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
}

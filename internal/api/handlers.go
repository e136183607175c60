package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/oscillatelabsllc/recall/internal/models"
)

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	UserID  *int64 `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	Response string `json:"response"`
}

// handleChat runs one turn. Pipeline failures still produce a 200 with
// the fallback text; only malformed requests are rejected.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.UserID == nil {
		errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	res := s.turns.HandleTurn(r.Context(), *req.UserID, req.Message)
	if !res.OK() {
		s.logger.Warn().
			Int64("user_id", *req.UserID).
			Str("step", res.FailedStep()).
			Msg("chat turn failed, replying with fallback")
	}

	successResponse(w, ChatResponse{Response: res.Reply()})
}

// handleSearch recalls a user's memories for a query without running a turn
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}

	query := q.Get("query")
	if query == "" {
		errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	maxResults := models.DefaultMatchCount
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorResponse(w, http.StatusBadRequest, "max_results must be a positive integer")
			return
		}
		maxResults = min(n, models.MaxMatchCount)
	}

	memories, err := s.turns.Recall(r.Context(), userID, query, maxResults)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Search failed: "+err.Error())
		return
	}

	// embeddings are noise for API consumers
	for i := range memories {
		memories[i].Embedding = nil
	}
	if memories == nil {
		memories = []models.Memory{}
	}

	successResponse(w, map[string]interface{}{
		"memories": memories,
		"count":    len(memories),
	})
}

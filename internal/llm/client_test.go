package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newChatServer answers every completion with content and records the request
func newChatServer(t *testing.T, content string, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "mistral-small-latest",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient("test-key", url, "mistral-small-latest", 5*time.Second, zerolog.Nop())
}

func TestPlanner_Search(t *testing.T) {
	var got capturedRequest
	srv := newChatServer(t, `{"tool": "web_search", "query": "bitcoin price today"}`, &got)
	defer srv.Close()

	decision, err := NewPlanner(newTestClient(srv.URL)).Plan(context.Background(), "How much is bitcoin?")
	require.NoError(t, err)
	assert.Equal(t, models.SearchDecision("bitcoin price today"), decision)

	assert.Equal(t, "mistral-small-latest", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "You are a smart router.")
	assert.Contains(t, got.Messages[0].Content, "User message: 'How much is bitcoin?'")
}

func TestPlanner_None(t *testing.T) {
	var got capturedRequest
	srv := newChatServer(t, `{"tool": "none"}`, &got)
	defer srv.Close()

	decision, err := NewPlanner(newTestClient(srv.URL)).Plan(context.Background(), "hi there")
	require.NoError(t, err)
	assert.False(t, decision.IsSearch())
}

func TestPlanner_MalformedJSON(t *testing.T) {
	var got capturedRequest
	srv := newChatServer(t, `I think a search would help`, &got)
	defer srv.Close()

	_, err := NewPlanner(newTestClient(srv.URL)).Plan(context.Background(), "news?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidDecision))
}

func TestResponder(t *testing.T) {
	var got capturedRequest
	srv := newChatServer(t, "Your name is Charlie!", &got)
	defer srv.Close()

	answer, err := NewResponder(newTestClient(srv.URL)).Respond(context.Background(), ResponseInput{
		ContextBlock: "MEMORY from past conversations:\n- The user's name is Charlie",
		Message:      "What's my name?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your name is Charlie!", answer)

	assert.Nil(t, got.ResponseFormat)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, ResponderInstruction, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t,
		"MEMORY from past conversations:\n- The user's name is Charlie\n\nUser message: 'What's my name?'\nResponse based on the context above:",
		got.Messages[1].Content)
}

func TestClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	_, err := NewResponder(newTestClient(srv.URL)).Respond(context.Background(), ResponseInput{Message: "hi"})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Unauthorized", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewPlanner(newTestClient(srv.URL)).Plan(context.Background(), "hi")
	assert.ErrorContains(t, err, "chat completion failed")
}

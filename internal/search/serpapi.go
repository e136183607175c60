// Package search queries SerpApi for web results
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/tidwall/gjson"
)

var (
	// ErrNoAPIKey is returned when no SerpApi key is configured
	ErrNoAPIKey = errors.New("SERPAPI_API_KEY is not configured")
	// ErrEmptyQuery is returned for a blank query; SerpApi rejects those too
	ErrEmptyQuery = errors.New("missing search query")
)

// SerpAPI is a SerpApi client for one engine (google by default)
type SerpAPI struct {
	baseURL string
	apiKey  string
	engine  string
	client  *http.Client
}

// NewSerpAPI creates a client. An empty baseURL means https://serpapi.com.
func NewSerpAPI(baseURL, apiKey, engine string) *SerpAPI {
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	if engine == "" {
		engine = "google"
	}
	return &SerpAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		engine:  engine,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Search runs query and extracts the answer box and the snippets of the
// first organic results
func (s *SerpAPI) Search(ctx context.Context, query string) (models.SearchResults, error) {
	if s.apiKey == "" {
		return models.SearchResults{}, ErrNoAPIKey
	}
	if strings.TrimSpace(query) == "" {
		return models.SearchResults{}, ErrEmptyQuery
	}

	params := url.Values{
		"q":       {query},
		"api_key": {s.apiKey},
		"engine":  {s.engine},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return models.SearchResults{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.SearchResults{}, fmt.Errorf("failed to call SerpApi: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SearchResults{}, fmt.Errorf("failed to read response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return models.SearchResults{}, fmt.Errorf("SerpApi returned status %d with non-JSON body", resp.StatusCode)
	}
	doc := gjson.ParseBytes(body)

	if msg := doc.Get("error"); msg.Exists() {
		return models.SearchResults{}, fmt.Errorf("SerpApi error: %s", msg.String())
	}
	if resp.StatusCode != http.StatusOK {
		return models.SearchResults{}, fmt.Errorf("SerpApi returned status %d", resp.StatusCode)
	}

	return parseResults(doc), nil
}

func parseResults(doc gjson.Result) models.SearchResults {
	var results models.SearchResults

	results.AnswerBox = doc.Get("answer_box.snippet").String()

	for i, r := range doc.Get("organic_results").Array() {
		if i >= models.MaxOrganicSnippets {
			break
		}
		if snippet := r.Get("snippet"); snippet.Exists() {
			results.Snippets = append(results.Snippets, snippet.String())
		}
	}

	return results
}

package models

import (
	"errors"
	"testing"
)

func TestMatchParamsWithDefaults(t *testing.T) {
	params := MatchParams{UserID: 7}.WithDefaults()

	if params.Threshold != 0.3 {
		t.Errorf("Expected threshold 0.3, got %v", params.Threshold)
	}
	if params.Count != 8 {
		t.Errorf("Expected count 8, got %d", params.Count)
	}

	custom := MatchParams{Threshold: 0.5, Count: 3}.WithDefaults()
	if custom.Threshold != 0.5 || custom.Count != 3 {
		t.Errorf("Explicit values were overwritten: %+v", custom)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Decision
		wantErr bool
	}{
		{"web search", `{"tool": "web_search", "query": "weather in Paris"}`, SearchDecision("weather in Paris"), false},
		{"none", `{"tool": "none"}`, NoSearch(), false},
		{"unknown tool is none", `{"tool": "calculator", "query": "2+2"}`, NoSearch(), false},
		{"missing tool is none", `{}`, NoSearch(), false},
		{"search without query", `{"tool": "web_search"}`, SearchDecision(""), false},
		{"search with blank query", `{"tool": "web_search", "query": "  "}`, SearchDecision(""), false},
		{"null", `null`, Decision{}, true},
		{"array", `[{"tool": "web_search", "query": "x"}]`, Decision{}, true},
		{"string", `"web_search"`, Decision{}, true},
		{"malformed json", `{"tool": "web_search"`, Decision{}, true},
		{"not json", `sure, let me search`, Decision{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecision([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDecision) {
					t.Fatalf("Expected ErrInvalidDecision, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchResultsSummary(t *testing.T) {
	t.Run("answer box wins", func(t *testing.T) {
		r := SearchResults{AnswerBox: "42", Snippets: []string{"a", "b"}}
		if got := r.Summary(); got != "42" {
			t.Errorf("Got %q, want %q", got, "42")
		}
	})

	t.Run("joins at most four snippets", func(t *testing.T) {
		r := SearchResults{Snippets: []string{"a", "b", "c", "d", "e"}}
		if got := r.Summary(); got != "a b c d" {
			t.Errorf("Got %q, want %q", got, "a b c d")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := (SearchResults{}).Summary(); got != NoResults {
			t.Errorf("Got %q, want %q", got, NoResults)
		}
	})
}

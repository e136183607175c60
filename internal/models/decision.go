package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tool names the planner can pick
type Tool string

const (
	ToolNone      Tool = "none"
	ToolWebSearch Tool = "web_search"
)

// ErrInvalidDecision is returned when the planner output cannot be used
var ErrInvalidDecision = errors.New("invalid planning decision")

// Decision is the planner's verdict for a single turn: either a web search
// with a query, or nothing.
type Decision struct {
	Tool  Tool
	Query string
}

// SearchDecision returns a decision to search the web for query
func SearchDecision(query string) Decision {
	return Decision{Tool: ToolWebSearch, Query: query}
}

// NoSearch returns a decision that skips the web search
func NoSearch() Decision {
	return Decision{Tool: ToolNone}
}

// IsSearch reports whether the decision asks for a web search
func (d Decision) IsSearch() bool {
	return d.Tool == ToolWebSearch
}

func (d Decision) String() string {
	if d.IsSearch() {
		return fmt.Sprintf("web_search(%q)", d.Query)
	}
	return string(ToolNone)
}

// ParseDecision decodes the planner's JSON object. Tools other than
// web_search are treated as none. A web_search with a missing or blank
// query is still a search; the provider rejects the empty query and the
// turn continues with the degraded search context.
func ParseDecision(data []byte) (Decision, error) {
	var raw *struct {
		Tool  string `json:"tool"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if raw == nil {
		return Decision{}, fmt.Errorf("%w: expected a JSON object, got null", ErrInvalidDecision)
	}

	if Tool(raw.Tool) != ToolWebSearch {
		return NoSearch(), nil
	}

	return SearchDecision(strings.TrimSpace(raw.Query)), nil
}

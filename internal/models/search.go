package models

import "strings"

// MaxOrganicSnippets is how many organic results feed a summary
const MaxOrganicSnippets = 4

// NoResults is the summary used when a search returned nothing usable
const NoResults = "No results found."

// SearchResults holds the parts of a web search response the assistant uses
type SearchResults struct {
	AnswerBox string   `json:"answer_box,omitempty"`
	Snippets  []string `json:"snippets,omitempty"`
}

// Summary flattens the results into the text handed to the responder.
// The answer box wins over organic snippets.
func (r SearchResults) Summary() string {
	if r.AnswerBox != "" {
		return r.AnswerBox
	}

	snippets := r.Snippets
	if len(snippets) > MaxOrganicSnippets {
		snippets = snippets[:MaxOrganicSnippets]
	}
	if len(snippets) == 0 {
		return NoResults
	}
	return strings.Join(snippets, " ")
}

package pipeline

import (
	"fmt"
	"strings"

	"github.com/oscillatelabsllc/recall/internal/models"
)

const (
	memoryHeader    = "MEMORY from past conversations:\n"
	webHeader       = "WEB SEARCH RESULTS:\n"
	noContext       = "No previous context available."
	webSearchFailed = "Error in web search: %v"
)

// formatMemories renders recalled memories as a bulleted block, or "" when
// there are none
func formatMemories(memories []models.Memory) string {
	if len(memories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(memoryHeader)
	for _, m := range memories {
		fmt.Fprintf(&b, "- %s\n", m.Content)
	}
	return b.String()
}

// formatWebResults wraps a search summary (or degraded error text)
func formatWebResults(results string) string {
	return webHeader + results + "\n\n"
}

// buildContextBlock joins memory and web context for the responder
func buildContextBlock(memoryContext, webContext string) string {
	block := strings.TrimSpace(memoryContext + webContext)
	if block == "" {
		return noContext
	}
	return block
}

func userSaidMemory(message string) string {
	return fmt.Sprintf("User said: '%s'", message)
}

func nameMemory(name string) string {
	return fmt.Sprintf("The user's name is %s", name)
}

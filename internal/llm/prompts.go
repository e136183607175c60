package llm

import "fmt"

// ResponderInstruction is the system message for answer generation
const ResponderInstruction = "You are a helpful AI assistant with memory and web search capabilities. IMPORTANT RULES:\n" +
	"1. If MEMORY contains the user's name or personal info, ALWAYS use it\n" +
	"2. When someone asks 'what's my name?' or 'who am I?', look for their name in MEMORY\n" +
	"3. If you have both MEMORY and WEB SEARCH RESULTS, use both appropriately\n" +
	"4. For personal questions, prioritize MEMORY. For factual questions, use WEB SEARCH RESULTS\n" +
	"5. Be conversational and remember details about the user"

const planningInstruction = "You are a smart router. Based on the user's message, decide if you need to search the web. " +
	"If the question is about current events, news, recent information, specific facts about companies/people, " +
	"weather, or requires up-to-date information, you should search. " +
	"If the user is asking about themselves, chatting casually, or the question can be answered from memory, you don't need to search. " +
	`Respond with a JSON object: {"tool": "web_search", "query": "search query"} or {"tool": "none"}.`

// PlanningPrompt builds the router prompt for message
func PlanningPrompt(message string) string {
	return fmt.Sprintf("%s\n\nUser message: '%s'", planningInstruction, message)
}

// ResponsePrompt builds the user turn carrying context and the message
func ResponsePrompt(contextBlock, message string) string {
	return fmt.Sprintf("%s\n\nUser message: '%s'\nResponse based on the context above:", contextBlock, message)
}

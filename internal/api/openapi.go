package api

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

// jsonBody describes an application/json payload referencing a schema
func jsonBody(description, schema string) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{
				"schema": object{"$ref": "#/components/schemas/" + schema},
			},
		},
	}
}

func queryParam(name, description, typ string, required bool) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      object{"type": typ},
	}
}

// handleOpenAPISpec returns the OpenAPI 3.0 specification
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Recall Chat API",
			"description": "Chat with an assistant that remembers past conversations per user and can search the web",
			"version":     Version,
		},
		"servers": []object{
			{"url": "http://localhost:8000", "description": "Local development server"},
		},
		"paths": object{
			"/": object{
				"get": object{
					"summary":     "Service info",
					"operationId": "getInfo",
					"responses":   object{"200": jsonBody("Service is running", "InfoResponse")},
				},
			},
			"/health": object{
				"get": object{
					"summary":     "Health check",
					"operationId": "getHealth",
					"responses":   object{"200": jsonBody("Server is healthy", "HealthResponse")},
				},
			},
			"/chat": object{
				"post": object{
					"summary":     "Send a chat message",
					"description": "Runs one turn: recalls the user's memories, optionally searches the web, answers, and stores the message. Failures still return 200 with an apology.",
					"operationId": "chat",
					"requestBody": object{
						"required": true,
						"content": object{
							"application/json": object{
								"schema": object{"$ref": "#/components/schemas/ChatRequest"},
							},
						},
					},
					"responses": object{
						"200": jsonBody("Assistant reply", "ChatResponse"),
						"400": jsonBody("Invalid request", "ErrorResponse"),
					},
				},
			},
			"/api/v1/memory/search": object{
				"get": object{
					"summary":     "Search a user's memories",
					"operationId": "searchMemories",
					"parameters": []object{
						queryParam("user_id", "User whose memories to search", "integer", true),
						queryParam("query", "Text to search for (will be embedded)", "string", true),
						queryParam("max_results", "Maximum number of results (default 8, max 50)", "integer", false),
					},
					"responses": object{
						"200": jsonBody("Matching memories, most similar first", "SearchResponse"),
						"400": jsonBody("Invalid request", "ErrorResponse"),
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"InfoResponse": object{
					"type": "object",
					"properties": object{
						"message": object{"type": "string"},
						"version": object{"type": "string"},
					},
				},
				"HealthResponse": object{
					"type": "object",
					"properties": object{
						"status":       object{"type": "string"},
						"telegram_bot": object{"type": "string", "enum": []string{"running", "disabled"}},
						"web_api":      object{"type": "string"},
					},
				},
				"ChatRequest": object{
					"type":     "object",
					"required": []string{"user_id", "message"},
					"properties": object{
						"user_id": object{"type": "integer", "format": "int64"},
						"message": object{"type": "string"},
					},
				},
				"ChatResponse": object{
					"type": "object",
					"properties": object{
						"response": object{"type": "string"},
					},
				},
				"Memory": object{
					"type": "object",
					"properties": object{
						"id":         object{"type": "string"},
						"user_id":    object{"type": "integer", "format": "int64"},
						"content":    object{"type": "string"},
						"similarity": object{"type": "number"},
						"created_at": object{"type": "string", "format": "date-time"},
					},
				},
				"SearchResponse": object{
					"type": "object",
					"properties": object{
						"memories": object{"type": "array", "items": object{"$ref": "#/components/schemas/Memory"}},
						"count":    object{"type": "integer"},
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error": object{"type": "string"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}

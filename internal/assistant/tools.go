package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/halit-vural/autorag/internal/knowledge"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/internal/tools"
)

// Tool is a function the model may call during a run.
type Tool interface {
	Definition() openai.Tool
	Call(ctx context.Context, arguments string) (string, error)
}

// WebSearcher is the web search backend behind duckduckgo_search.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]tools.SearchResult, error)
}

func functionTool(name, description string, params jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

type knowledgeSearchTool struct {
	kb *knowledge.Base
}

func (t knowledgeSearchTool) Definition() openai.Tool {
	return functionTool("search_knowledge_base",
		"Use this function to search the knowledge base for information about a query.",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {Type: jsonschema.String, Description: "The query to search for."},
			},
			Required: []string{"query"},
		})
}

func (t knowledgeSearchTool) Call(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	docs, err := t.kb.Search(ctx, args.Query)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No documents found", nil
	}

	type reference struct {
		Name    string         `json:"name"`
		Meta    map[string]any `json:"meta_data,omitempty"`
		Content string         `json:"content"`
	}
	refs := make([]reference, len(docs))
	for i, d := range docs {
		refs[i] = reference{Name: d.Name, Meta: d.Meta, Content: d.Content}
	}
	return toJSON(refs)
}

type webSearchTool struct {
	searcher   WebSearcher
	maxResults int
}

func (t webSearchTool) Definition() openai.Tool {
	return functionTool("duckduckgo_search",
		"Use this function to search DuckDuckGo for a query.",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query":       {Type: jsonschema.String, Description: "The query to search for."},
				"max_results": {Type: jsonschema.Integer, Description: "The maximum number of results to return. Defaults to 5."},
			},
			Required: []string{"query"},
		})
}

func (t webSearchTool) Call(ctx context.Context, arguments string) (string, error) {
	args := struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}{MaxResults: t.maxResults}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	results, err := t.searcher.Search(ctx, args.Query, args.MaxResults)
	if err != nil {
		return "", err
	}
	return toJSON(results)
}

type chatHistoryTool struct {
	history func() []models.Message
}

func (t chatHistoryTool) Definition() openai.Tool {
	return functionTool("get_chat_history",
		"Use this function to get the chat history between the user and assistant. Each chat contains 2 messages, one from the user and one from the assistant.",
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"num_chats": {Type: jsonschema.Integer, Description: "The number of chats to return. Returns all chats when omitted."},
			},
		})
}

func (t chatHistoryTool) Call(_ context.Context, arguments string) (string, error) {
	var args struct {
		NumChats int `json:"num_chats"`
	}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	history := t.history()
	if history == nil {
		history = []models.Message{}
	}
	if args.NumChats > 0 && args.NumChats*2 < len(history) {
		history = history[len(history)-args.NumChats*2:]
	}
	return toJSON(history)
}

// formatToolCall renders a call as name(key=value, ...) with keys sorted.
func formatToolCall(name, arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || len(args) == 0 {
		return name + "()"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

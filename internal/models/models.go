package models

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is one fragment of a knowledge item (a PDF page, a web page chunk).
type Document struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta_data,omitempty"`
	Embedding []float32      `json:"-"`
	Score     float32        `json:"score,omitempty"`
}

type Memory struct {
	ChatHistory []Message `json:"chat_history"`
}

// Run is one persisted conversation between a user and an assistant configuration.
type Run struct {
	RunID     string         `json:"run_id"`
	Name      string         `json:"name"`
	UserID    string         `json:"user_id,omitempty"`
	LLM       map[string]any `json:"llm,omitempty"`
	Memory    Memory         `json:"memory"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

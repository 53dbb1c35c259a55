package api

// SettingsRequest carries the two model selectors. Empty values keep the current selection.
type SettingsRequest struct {
	LLMModel        string `form:"llm_model" binding:"omitempty,oneof=llama3-70b-8192 llama3-8b-8192"`
	EmbeddingsModel string `form:"embeddings_model" binding:"omitempty,oneof=text-embedding-3-small nomic-embed-text"`
}

package api

type ChatRequest struct {
	Prompt string `form:"prompt" binding:"required"`
}

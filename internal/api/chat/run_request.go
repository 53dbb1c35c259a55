package api

type SelectRunRequest struct {
	RunID string `form:"run_id" binding:"required"`
}

package db

import (
	"context"

	"github.com/halit-vural/autorag/internal/models"
)

// VectorDB is one named collection of embedded document fragments.
type VectorDB interface {
	Collection() string
	Create(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Upsert(ctx context.Context, docs []models.Document) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]models.Document, error)
	Clear(ctx context.Context) error
}

// RunStorage persists runs and their chat memory.
type RunStorage interface {
	Create(ctx context.Context) error
	// Read returns nil without an error when the run does not exist.
	Read(ctx context.Context, runID string) (*models.Run, error)
	Upsert(ctx context.Context, run models.Run) (*models.Run, error)
	// GetAllRunIDs lists run ids newest first. An empty userID lists every run.
	GetAllRunIDs(ctx context.Context, userID string) ([]string, error)
}

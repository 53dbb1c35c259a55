package knowledge

import (
	"context"
	"fmt"

	"github.com/halit-vural/autorag/internal/db"
	"github.com/halit-vural/autorag/internal/embedder"
	"github.com/halit-vural/autorag/internal/models"
)

// DefaultNumDocuments is how many fragments a knowledge search returns.
const DefaultNumDocuments = 3

// embedBatchSize bounds the number of texts sent in a single embeddings request.
const embedBatchSize = 64

// Base is a vector collection together with the embedder that fills it.
type Base struct {
	vdb          db.VectorDB
	embedder     embedder.Embedder
	NumDocuments int
}

func New(vdb db.VectorDB, e embedder.Embedder) *Base {
	return &Base{vdb: vdb, embedder: e, NumDocuments: DefaultNumDocuments}
}

func (b *Base) Collection() string { return b.vdb.Collection() }

// LoadDocuments embeds docs and upserts them, creating the collection first when needed.
func (b *Base) LoadDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if err := b.vdb.Create(ctx); err != nil {
		return err
	}

	for start := 0; start < len(docs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(docs))
		batch := make([]models.Document, end-start)
		copy(batch, docs[start:end])

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Content
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}

		if err := b.vdb.Upsert(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the NumDocuments fragments closest to query. A missing collection yields no results.
func (b *Base) Search(ctx context.Context, query string) ([]models.Document, error) {
	exists, err := b.vdb.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []models.Document{}, nil
	}

	vectors, err := b.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return b.vdb.Search(ctx, vectors[0], b.NumDocuments)
}

func (b *Base) Clear(ctx context.Context) error {
	return b.vdb.Clear(ctx)
}

package db

import (
	"context"
	"testing"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDB_SearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB("auto_rag_documents_groq_openai", 2)

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	require.Error(t, store.Upsert(ctx, []models.Document{{Content: "x", Embedding: []float32{1, 0}}}))

	require.NoError(t, store.Create(ctx))
	require.NoError(t, store.Upsert(ctx, []models.Document{
		{Name: "east", Content: "east", Embedding: []float32{1, 0}},
		{Name: "north", Content: "north", Embedding: []float32{0, 1}},
		{Name: "north-east", Content: "north-east", Embedding: []float32{1, 1}},
	}))

	docs, err := store.Search(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "north", docs[0].Name)
	assert.Equal(t, "north-east", docs[1].Name)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
}

func TestMemoryDB_UpsertIsIdempotentPerContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB("c", 2)
	require.NoError(t, store.Create(ctx))

	doc := models.Document{Content: "same text", Embedding: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, []models.Document{doc}))
	require.NoError(t, store.Upsert(ctx, []models.Document{doc}))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryDB_RejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB("c", 3)
	require.NoError(t, store.Create(ctx))

	err := store.Upsert(ctx, []models.Document{{Content: "x", Embedding: []float32{1, 0}}})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryDB_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB("c", 2)
	require.NoError(t, store.Create(ctx))
	require.NoError(t, store.Upsert(ctx, []models.Document{{Content: "x", Embedding: []float32{1, 0}}}))

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, store.Len())

	docs, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash("abc"), 32)
}

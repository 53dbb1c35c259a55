package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/halit-vural/autorag/internal/db"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letterEmbedder maps text onto counts of a, b and c.
type letterEmbedder struct {
	calls int
	err   error
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{
			float32(strings.Count(t, "a")),
			float32(strings.Count(t, "b")),
			float32(strings.Count(t, "c")),
		}
	}
	return out, nil
}

func (e *letterEmbedder) Model() string   { return "letters" }
func (e *letterEmbedder) Dimensions() int { return 3 }

func TestBase_LoadAndSearch(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB("auto_rag_documents_groq_openai", 3)
	kb := New(store, &letterEmbedder{})

	assert.Equal(t, 3, kb.NumDocuments)
	assert.Equal(t, "auto_rag_documents_groq_openai", kb.Collection())

	require.NoError(t, kb.LoadDocuments(ctx, []models.Document{
		{Name: "a", Content: "aaaa"},
		{Name: "b", Content: "bbbb"},
		{Name: "c", Content: "cccc"},
		{Name: "ab", Content: "aabb"},
	}))
	assert.Equal(t, 4, store.Len())

	docs, err := kb.Search(ctx, "bbb")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "b", docs[0].Name)
	assert.Equal(t, "ab", docs[1].Name)
}

func TestBase_SearchWithoutCollection(t *testing.T) {
	e := &letterEmbedder{}
	kb := New(db.NewMemoryDB("c", 3), e)

	docs, err := kb.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, e.calls)
}

func TestBase_LoadPropagatesEmbedError(t *testing.T) {
	store := db.NewMemoryDB("c", 3)
	kb := New(store, &letterEmbedder{err: errors.New("quota")})

	err := kb.LoadDocuments(context.Background(), []models.Document{{Content: "abc"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
	assert.Equal(t, 0, store.Len())
}

func TestBase_Clear(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB("c", 3)
	kb := New(store, &letterEmbedder{})
	require.NoError(t, kb.LoadDocuments(ctx, []models.Document{{Content: "abc"}}))

	require.NoError(t, kb.Clear(ctx))
	assert.Equal(t, 0, store.Len())
}

package db

import (
	"context"
	"testing"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunStorage(t *testing.T) *SQLiteRunStorage {
	t.Helper()
	conn, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	storage := NewSQLiteRunStorage(conn, "auto_rag_assistant_groq")
	require.NoError(t, storage.Create(context.Background()))
	return storage
}

func TestSQLiteRunStorage_ReadMissingRun(t *testing.T) {
	storage := newTestRunStorage(t)

	run, err := storage.Read(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSQLiteRunStorage_UpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newTestRunStorage(t)

	saved, err := storage.Upsert(ctx, models.Run{
		RunID:  "run-1",
		Name:   "auto_rag_assistant_groq",
		UserID: "user",
		LLM:    map[string]any{"model": "llama3-70b-8192"},
		Memory: models.Memory{ChatHistory: []models.Message{
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hello"},
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "llama3-70b-8192", saved.LLM["model"])
	assert.Len(t, saved.Memory.ChatHistory, 2)
	assert.False(t, saved.CreatedAt.IsZero())

	saved.Memory.ChatHistory = append(saved.Memory.ChatHistory, models.Message{Role: models.RoleUser, Content: "again"})
	updated, err := storage.Upsert(ctx, *saved)
	require.NoError(t, err)
	assert.Len(t, updated.Memory.ChatHistory, 3)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.IsZero())
}

func TestSQLiteRunStorage_GetAllRunIDs(t *testing.T) {
	ctx := context.Background()
	storage := newTestRunStorage(t)

	for _, r := range []models.Run{
		{RunID: "a", UserID: "alice"},
		{RunID: "b", UserID: "bob"},
		{RunID: "c", UserID: "alice"},
	} {
		_, err := storage.Upsert(ctx, r)
		require.NoError(t, err)
	}

	all, err := storage.GetAllRunIDs(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, all)

	alice, err := storage.GetAllRunIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, alice)
}

func TestSQLiteRunStorage_RejectsEmptyRunID(t *testing.T) {
	storage := newTestRunStorage(t)

	_, err := storage.Upsert(context.Background(), models.Run{})
	assert.Error(t, err)
}

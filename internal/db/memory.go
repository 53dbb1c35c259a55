package db

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/halit-vural/autorag/internal/models"
)

// MemoryDB is an in-process collection using brute-force cosine similarity.
// It backs the terminal UI when no vector database is running, and the tests.
type MemoryDB struct {
	mu         sync.RWMutex
	collection string
	dimensions int
	created    bool
	docs       map[string]models.Document
	order      []string
}

var _ VectorDB = (*MemoryDB)(nil)

func NewMemoryDB(collection string, dimensions int) *MemoryDB {
	return &MemoryDB{collection: collection, dimensions: dimensions, docs: map[string]models.Document{}}
}

func (m *MemoryDB) Collection() string { return m.collection }

func (m *MemoryDB) Create(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

func (m *MemoryDB) Exists(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created, nil
}

func (m *MemoryDB) Upsert(_ context.Context, docs []models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.created {
		return errors.New("collection does not exist")
	}
	for _, doc := range docs {
		if len(doc.Embedding) != m.dimensions {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = ContentHash(doc.Content)
		}
		if _, ok := m.docs[doc.ID]; !ok {
			m.order = append(m.order, doc.ID)
		}
		m.docs[doc.ID] = doc
	}
	return nil
}

func (m *MemoryDB) Search(_ context.Context, queryVector []float32, limit int) ([]models.Document, error) {
	if len(queryVector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]models.Document, 0, len(m.order))
	for _, id := range m.order {
		doc := m.docs[id]
		doc.Score = cosine(doc.Embedding, queryVector)
		results = append(results, doc)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryDB) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[string]models.Document{}
	m.order = nil
	return nil
}

// Len reports the number of stored fragments.
func (m *MemoryDB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

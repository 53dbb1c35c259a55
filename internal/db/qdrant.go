package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantDB stores one collection in a qdrant server over gRPC.
type QdrantDB struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

var _ VectorDB = (*QdrantDB)(nil)

func NewQdrantClient(host string, port int, apiKey string) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return client, nil
}

func NewQdrantDB(client *qdrant.Client, collection string, dimensions int) *QdrantDB {
	return &QdrantDB{client: client, collection: collection, dimensions: dimensions}
}

func (q *QdrantDB) Collection() string { return q.collection }

func (q *QdrantDB) Create(ctx context.Context) error {
	exists, err := q.Exists(ctx)
	if err != nil || exists {
		return err
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *QdrantDB) Exists(ctx context.Context) (bool, error) {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}
	return exists, nil
}

func (q *QdrantDB) Upsert(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = ContentHash(doc.Content)
		}

		payload := map[string]any{
			"id":      id,
			"name":    doc.Name,
			"content": doc.Content,
		}
		if len(doc.Meta) > 0 {
			payload["meta_data"] = doc.Meta
		}
		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}

		points[i] = &qdrant.PointStruct{
			// qdrant ids must be UUIDs or integers
			Id:      qdrant.NewID(uuid.NewMD5(uuid.NameSpaceOID, []byte(id)).String()),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: values,
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (q *QdrantDB) Search(ctx context.Context, queryVector []float32, limit int) ([]models.Document, error) {
	l := uint64(limit)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &l,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	documents := make([]models.Document, 0, len(hits))
	for _, hit := range hits {
		p := hit.GetPayload()
		doc := models.Document{
			ID:      p["id"].GetStringValue(),
			Name:    p["name"].GetStringValue(),
			Content: p["content"].GetStringValue(),
			Score:   hit.GetScore(),
		}
		if meta := p["meta_data"].GetStructValue(); meta != nil {
			doc.Meta = structToMap(meta)
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

// Clear drops the collection. Create rebuilds it on the next upsert.
func (q *QdrantDB) Clear(ctx context.Context) error {
	exists, err := q.Exists(ctx)
	if err != nil || !exists {
		return err
	}
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", q.collection, err)
	}
	return nil
}

func structToMap(s *qdrant.Struct) map[string]any {
	out := make(map[string]any, len(s.GetFields()))
	for k, v := range s.GetFields() {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return structToMap(kind.StructValue)
	case *qdrant.Value_ListValue:
		list := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			list = append(list, valueToAny(item))
		}
		return list
	default:
		return nil
	}
}

package db

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PgVector stores one collection as a postgres table with a pgvector embedding column.
type PgVector struct {
	db         *sql.DB
	collection string
	dimensions int
}

var _ VectorDB = (*PgVector)(nil)

func NewPgVector(db *sql.DB, collection string, dimensions int) *PgVector {
	return &PgVector{db: db, collection: collection, dimensions: dimensions}
}

func (pg *PgVector) Collection() string { return pg.collection }

func (pg *PgVector) Create(ctx context.Context) error {
	if _, err := pg.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT,
			meta_data JSONB DEFAULT '{}'::jsonb,
			content TEXT,
			embedding vector(%d),
			content_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)
	`, pq.QuoteIdentifier(pg.collection), pg.dimensions)

	if _, err := pg.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", pg.collection, err)
	}
	return nil
}

func (pg *PgVector) Exists(ctx context.Context) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`

	var exists bool
	if err := pg.db.QueryRowContext(ctx, query, pg.collection).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", pg.collection, err)
	}
	return exists, nil
}

func (pg *PgVector) Upsert(ctx context.Context, docs []models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, meta_data, content, embedding, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    meta_data = EXCLUDED.meta_data,
		    content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding,
		    content_hash = EXCLUDED.content_hash,
		    updated_at = NOW()
	`, pq.QuoteIdentifier(pg.collection))

	tx, err := pg.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return errors.New("vector cannot be empty")
		}

		meta, err := json.Marshal(doc.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode meta data: %w", err)
		}

		hash := ContentHash(doc.Content)
		id := doc.ID
		if id == "" {
			id = hash
		}

		if _, err := tx.ExecContext(ctx, query, id, doc.Name, meta, doc.Content, pgvector.NewVector(doc.Embedding), hash); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}
	}

	return tx.Commit()
}

func (pg *PgVector) Search(ctx context.Context, queryVector []float32, limit int) ([]models.Document, error) {
	if len(queryVector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}

	query := fmt.Sprintf(`
		SELECT id, COALESCE(name, ''), meta_data, COALESCE(content, ''), embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2
	`, pq.QuoteIdentifier(pg.collection))

	rows, err := pg.db.QueryContext(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var (
			doc      models.Document
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &meta, &doc.Content, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &doc.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode meta data: %w", err)
			}
		}
		doc.Score = float32(1 - distance)
		documents = append(documents, doc)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating through documents: %w", rows.Err())
	}

	return documents, nil
}

func (pg *PgVector) Clear(ctx context.Context) error {
	exists, err := pg.Exists(ctx)
	if err != nil || !exists {
		return err
	}

	if _, err := pg.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, pq.QuoteIdentifier(pg.collection))); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", pg.collection, err)
	}
	return nil
}

// ContentHash identifies a fragment by its text so re-ingesting the same content overwrites it.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

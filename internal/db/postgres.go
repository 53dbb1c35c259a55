package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/lib/pq"
)

// OpenPostgres opens the shared connection pool used by the run store and the pgvector collections.
// The server is not contacted here; Ping reports whether it is reachable.
func OpenPostgres(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	return nil
}

type PgRunStorage struct {
	db    *sql.DB
	table string
}

var _ RunStorage = (*PgRunStorage)(nil)

func NewPgRunStorage(db *sql.DB, table string) *PgRunStorage {
	return &PgRunStorage{db: db, table: table}
}

func (pg *PgRunStorage) Create(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT PRIMARY KEY,
			name TEXT,
			user_id TEXT,
			llm JSONB,
			memory JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)
	`, pq.QuoteIdentifier(pg.table))

	if _, err := pg.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create run table: %w", err)
	}
	return nil
}

func (pg *PgRunStorage) Read(ctx context.Context, runID string) (*models.Run, error) {
	if runID == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	query := fmt.Sprintf(`
		SELECT run_id, COALESCE(name, ''), COALESCE(user_id, ''), llm, memory, created_at, updated_at
		FROM %s
		WHERE run_id = $1
	`, pq.QuoteIdentifier(pg.table))

	var (
		run       models.Run
		llm       []byte
		memory    []byte
		updatedAt sql.NullTime
	)
	err := pg.db.QueryRowContext(ctx, query, runID).
		Scan(&run.RunID, &run.Name, &run.UserID, &llm, &memory, &run.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}

	if err := decodeRunColumns(&run, llm, memory); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		run.UpdatedAt = updatedAt.Time
	}
	return &run, nil
}

func (pg *PgRunStorage) Upsert(ctx context.Context, run models.Run) (*models.Run, error) {
	if run.RunID == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	llm, memory, err := encodeRunColumns(run)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, name, user_id, llm, memory)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
		SET name = EXCLUDED.name,
		    llm = EXCLUDED.llm,
		    memory = EXCLUDED.memory,
		    updated_at = NOW()
	`, pq.QuoteIdentifier(pg.table))

	if _, err := pg.db.ExecContext(ctx, query, run.RunID, run.Name, run.UserID, llm, memory); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	return pg.Read(ctx, run.RunID)
}

func (pg *PgRunStorage) GetAllRunIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT run_id FROM %s`, pq.QuoteIdentifier(pg.table))
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := pg.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return scanRunIDs(rows)
}

func scanRunIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating through runs: %w", rows.Err())
	}
	return ids, nil
}

func encodeRunColumns(run models.Run) ([]byte, []byte, error) {
	llm, err := json.Marshal(run.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode llm: %w", err)
	}
	memory, err := json.Marshal(run.Memory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode memory: %w", err)
	}
	return llm, memory, nil
}

func decodeRunColumns(run *models.Run, llm, memory []byte) error {
	if len(llm) > 0 {
		if err := json.Unmarshal(llm, &run.LLM); err != nil {
			return fmt.Errorf("failed to decode llm: %w", err)
		}
	}
	if len(memory) > 0 {
		if err := json.Unmarshal(memory, &run.Memory); err != nil {
			return fmt.Errorf("failed to decode memory: %w", err)
		}
	}
	return nil
}

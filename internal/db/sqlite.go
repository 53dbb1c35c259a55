package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halit-vural/autorag/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteRunStorage is the single-file run store used when no postgres is available.
type SQLiteRunStorage struct {
	conn  *sql.DB
	table string
}

var _ RunStorage = (*SQLiteRunStorage)(nil)

func OpenSQLite(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLiteRunStorage(conn *sql.DB, table string) *SQLiteRunStorage {
	return &SQLiteRunStorage{conn: conn, table: table}
}

func (s *SQLiteRunStorage) Create(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
            run_id TEXT PRIMARY KEY,
            name TEXT,
            user_id TEXT,
            llm TEXT,
            memory TEXT,
            created_at INTEGER NOT NULL,
            updated_at INTEGER
        );`, s.table)

	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create run table: %w", err)
	}
	return nil
}

func (s *SQLiteRunStorage) Read(ctx context.Context, runID string) (*models.Run, error) {
	if runID == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	query := fmt.Sprintf(`SELECT run_id, COALESCE(name, ''), COALESCE(user_id, ''), llm, memory, created_at, updated_at FROM %q WHERE run_id = ?`, s.table)

	var (
		run       models.Run
		llm       sql.NullString
		memory    sql.NullString
		createdAt int64
		updatedAt sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx, query, runID).
		Scan(&run.RunID, &run.Name, &run.UserID, &llm, &memory, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}

	if err := decodeRunColumns(&run, []byte(llm.String), []byte(memory.String)); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt)
	if updatedAt.Valid {
		run.UpdatedAt = time.Unix(0, updatedAt.Int64)
	}
	return &run, nil
}

func (s *SQLiteRunStorage) Upsert(ctx context.Context, run models.Run) (*models.Run, error) {
	if run.RunID == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	llm, memory, err := encodeRunColumns(run)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixNano()
	query := fmt.Sprintf(`
    INSERT INTO %q (run_id, name, user_id, llm, memory, created_at) VALUES (?, ?, ?, ?, ?, ?)
    ON CONFLICT(run_id) DO UPDATE SET
        name=excluded.name,
        llm=excluded.llm,
        memory=excluded.memory,
        updated_at=?
    `, s.table)

	if _, err := s.conn.ExecContext(ctx, query, run.RunID, run.Name, run.UserID, string(llm), string(memory), now, now); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	return s.Read(ctx, run.RunID)
}

func (s *SQLiteRunStorage) GetAllRunIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT run_id FROM %q`, s.table)
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return scanRunIDs(rows)
}

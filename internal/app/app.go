package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/halit-vural/autorag/internal/assistant"
	"github.com/halit-vural/autorag/internal/config"
	"github.com/halit-vural/autorag/internal/db"
	"github.com/halit-vural/autorag/internal/embedder"
	"github.com/halit-vural/autorag/internal/llm"
	"github.com/halit-vural/autorag/internal/parsing"
	"github.com/halit-vural/autorag/internal/session"
	"github.com/halit-vural/autorag/internal/tools"
)

// App holds the shared resources behind every session: database pools and the controller.
type App struct {
	Controller *session.Controller

	closers []func() error
}

// New opens the configured stores and assembles the assistant factory and session controller.
// Stores are reached lazily by the assistants, so an unreachable database surfaces as a notice, not here.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	var pg *sql.DB
	openPostgres := func() (*sql.DB, error) {
		if pg != nil {
			return pg, nil
		}
		conn, err := db.OpenPostgres(cfg.Database.Connection)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx, conn); err != nil {
			logger.Warn("database is not reachable yet", zap.Error(err))
		}
		pg = conn
		a.closers = append(a.closers, conn.Close)
		return pg, nil
	}

	storage, err := a.runStorage(cfg, openPostgres)
	if err != nil {
		a.Close()
		return nil, err
	}

	vectorDB, err := a.vectorDB(cfg, openPostgres)
	if err != nil {
		a.Close()
		return nil, err
	}

	persona, err := assistant.ResolvePersona(cfg.Assistant.Persona, cfg.Assistant.PersonasFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	policy := assistant.DefaultPolicy()
	policy.LLMTimeout = cfg.LLM.Timeout
	policy.StoreTimeout = cfg.Assistant.StoreTimeout

	endpoints := embedder.Endpoints{
		OpenAIBaseURL: cfg.Embedder.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.Embedder.OpenAIAPIKey,
		OllamaBaseURL: cfg.Embedder.OllamaBaseURL,
	}

	factory := assistant.NewFactory(assistant.Deps{
		LLM:      llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout),
		Storage:  storage,
		VectorDB: vectorDB,
		Embedder: func(spec embedder.Spec) (embedder.Embedder, error) {
			e, err := embedder.New(spec, endpoints)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		Search:  tools.NewDuckDuckGo(),
		Persona: persona,
		Flags:   assistant.DefaultFlags(),
		Policy:  policy,
		Logger:  logger.Named("assistant"),
	})

	a.Controller = session.NewController(
		session.FactoryBuilder(factory, cfg.App.UserID, cfg.App.Debug),
		parsing.NewPDFReader(),
		parsing.NewWebsiteReader(logger.Named("website")),
		logger.Named("session"),
	)

	logger.Info("application assembled",
		zap.String("run_store", cfg.Database.RunStore),
		zap.String("vector_db", cfg.Vector.Driver),
		zap.String("persona", persona.Name),
	)
	return a, nil
}

func (a *App) runStorage(cfg *config.Config, openPostgres func() (*sql.DB, error)) (db.RunStorage, error) {
	switch cfg.Database.RunStore {
	case "postgres":
		conn, err := openPostgres()
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		return db.NewPgRunStorage(conn, assistant.StorageTable), nil
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		return db.NewSQLiteRunStorage(conn, assistant.StorageTable), nil
	default:
		return nil, fmt.Errorf("unsupported run store: %s", cfg.Database.RunStore)
	}
}

func (a *App) vectorDB(cfg *config.Config, openPostgres func() (*sql.DB, error)) (func(embedder.Spec) (db.VectorDB, error), error) {
	switch cfg.Vector.Driver {
	case "pgvector":
		conn, err := openPostgres()
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return func(spec embedder.Spec) (db.VectorDB, error) {
			return db.NewPgVector(conn, spec.Collection, spec.Dimensions), nil
		}, nil
	case "qdrant":
		client, err := db.NewQdrantClient(cfg.Vector.QdrantHost, cfg.Vector.QdrantPort, cfg.Vector.QdrantAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return func(spec embedder.Spec) (db.VectorDB, error) {
			return db.NewQdrantDB(client, spec.Collection, spec.Dimensions), nil
		}, nil
	case "memory":
		return memoryCollections(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.Vector.Driver)
	}
}

// memoryCollections hands out one in-memory collection per name, shared by every assistant.
func memoryCollections() func(embedder.Spec) (db.VectorDB, error) {
	var mu sync.Mutex
	collections := map[string]*db.MemoryDB{}
	return func(spec embedder.Spec) (db.VectorDB, error) {
		mu.Lock()
		defer mu.Unlock()
		m, ok := collections[spec.Collection]
		if !ok {
			m = db.NewMemoryDB(spec.Collection, spec.Dimensions)
			collections[spec.Collection] = m
		}
		return m, nil
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

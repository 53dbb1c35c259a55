package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultLLMModel        = "llama3-70b-8192"
	DefaultEmbeddingsModel = "text-embedding-3-small"
)

// LLMModels and EmbeddingsModels are the options offered by the model selectors, default first.
var (
	LLMModels        = []string{"llama3-70b-8192", "llama3-8b-8192"}
	EmbeddingsModels = []string{"text-embedding-3-small", "nomic-embed-text"}
)

const EmbeddingsHelp = "When you change the embeddings model, the documents will need to be added again."

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Vector    VectorConfig
	LLM       LLMConfig
	Embedder  EmbedderConfig
	Assistant AssistantConfig
}

type AppConfig struct {
	Port        string `validate:"required"`
	Environment string
	LogFilePath string
	Debug       bool
	AccessToken string
	UserID      string
}

type DatabaseConfig struct {
	Connection string `validate:"required_if=RunStore postgres"`
	RunStore   string `validate:"oneof=postgres sqlite"`
	SQLitePath string `validate:"required_if=RunStore sqlite"`
}

type VectorConfig struct {
	Driver       string `validate:"oneof=pgvector qdrant memory"`
	QdrantHost   string `validate:"required_if=Driver qdrant"`
	QdrantPort   int
	QdrantAPIKey string
}

type LLMConfig struct {
	BaseURL string `validate:"required,url"`
	APIKey  string
	Timeout time.Duration `validate:"gt=0"`
}

type EmbedderConfig struct {
	OpenAIBaseURL string `validate:"required,url"`
	OpenAIAPIKey  string
	OllamaBaseURL string `validate:"required,url"`
}

type AssistantConfig struct {
	Persona      string `validate:"required"`
	PersonasFile string
	StoreTimeout time.Duration `validate:"gt=0"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8501"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", ""),
			Debug:       getEnvAsBool("DEBUG", true),
			AccessToken: getEnv("ACCESS_TOKEN", ""),
			UserID:      getEnv("USER_ID", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", "postgres://ai:ai@localhost:5532/ai?sslmode=disable"),
			RunStore:   getEnv("RUN_STORE", "postgres"),
			SQLitePath: getEnv("SQLITE_PATH", "autorag.db"),
		},
		Vector: VectorConfig{
			Driver:       getEnv("VECTOR_DB", "pgvector"),
			QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:   getEnvAsInt("QDRANT_PORT", 6334),
			QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:  getEnv("GROQ_API_KEY", ""),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Embedder: EmbedderConfig{
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		},
		Assistant: AssistantConfig{
			Persona:      getEnv("ASSISTANT_PERSONA", "etio"),
			PersonasFile: getEnv("PERSONAS_FILE", ""),
			StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

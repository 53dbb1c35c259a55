package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPortFailsValidation(t *testing.T) {
	for _, key := range []string{"APP_PORT", "RUN_STORE", "VECTOR_DB", "ASSISTANT_PERSONA", "LLM_TIMEOUT", "STORE_TIMEOUT", "GROQ_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("RUN_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("VECTOR_DB", "memory")
	t.Setenv("ASSISTANT_PERSONA", "autorag")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	t.Setenv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("DEBUG", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.RunStore)
	assert.Equal(t, "/tmp/runs.db", cfg.Database.SQLitePath)
	assert.Equal(t, "memory", cfg.Vector.Driver)
	assert.Equal(t, "autorag", cfg.Assistant.Persona)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Assistant.StoreTimeout)
	assert.False(t, cfg.App.Debug)
}

func TestValidate_RejectsUnknownDrivers(t *testing.T) {
	cfg := validConfig()
	cfg.Vector.Driver = "chroma"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Database.RunStore = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Database.RunStore = "postgres"
	cfg.Database.Connection = ""
	assert.Error(t, cfg.Validate())
}

func TestDurationFallback(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "not-a-duration")
	assert.Equal(t, 60*time.Second, getEnvAsDuration("LLM_TIMEOUT", 60*time.Second))
}

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Port: "8501"},
		Database:  DatabaseConfig{Connection: "postgres://ai:ai@localhost:5532/ai", RunStore: "postgres"},
		Vector:    VectorConfig{Driver: "pgvector"},
		LLM:       LLMConfig{BaseURL: "https://api.groq.com/openai/v1", Timeout: time.Minute},
		Embedder:  EmbedderConfig{OpenAIBaseURL: "https://api.openai.com/v1", OllamaBaseURL: "http://localhost:11434/v1"},
		Assistant: AssistantConfig{Persona: "etio", StoreTimeout: time.Second},
	}
}

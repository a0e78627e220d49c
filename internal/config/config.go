package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string
	Version  string

	RetrievalBackend string
	RetrievalURL     string
	KnowledgeFile    string
	NResults         int

	UserLookback    int
	MessageLookback int
	AssistantKeep   int

	LLMURL         string
	LLMModel       string
	LLMTemperature float64
	HTTPTimeout    time.Duration

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTL      time.Duration
	RateLimit     int
	RateWindow    time.Duration

	DatabaseURL string
	NatsURL     string
	NatsToken   string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, is applied first without overriding
// variables that are already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	return Config{
		Port:     envInt("KBCHAT_PORT", 9003),
		LogLevel: envStr("LOG_LEVEL", "info"),
		Version:  envStr("KBCHAT_VERSION", "dev"),

		RetrievalBackend: envStr("RETRIEVAL_BACKEND", "http"),
		RetrievalURL:     envStr("RETRIEVAL_URL", "http://ml-service:8000"),
		KnowledgeFile:    envStr("KNOWLEDGE_FILE", ""),
		NResults:         envInt("RETRIEVAL_N_RESULTS", 5),

		UserLookback:    envInt("USER_LOOKBACK", 2),
		MessageLookback: envInt("MESSAGE_LOOKBACK", 3),
		AssistantKeep:   envInt("ASSISTANT_KEEP", 2),

		LLMURL:         envStr("LLM_URL", "http://ollama:11434"),
		LLMModel:       envStr("LLM_MODEL", "gemma2:9b"),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0),
		HTTPTimeout:    envDuration("HTTP_TIMEOUT", 120*time.Second),

		RedisHost:     envStr("REDIS_HOST", ""),
		RedisPort:     envInt("REDIS_PORT", 6379),
		RedisDB:       envInt("REDIS_DB", 0),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		CacheTTL:      envDuration("CACHE_TTL", time.Hour),
		RateLimit:     envInt("RATE_LIMIT", 0),
		RateWindow:    envDuration("RATE_WINDOW", time.Minute),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
	}
}

// RedisAddress returns host:port, or "" when Redis is not configured.
func (c Config) RedisAddress() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + strconv.Itoa(c.RedisPort)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") and bare seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

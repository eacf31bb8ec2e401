// Package config centralizes the environment variables named in the engine's
// external interface: EMBEDDING_SERVICE_URL, DATABASE_URL, DEFAULT_WEIGHTS,
// plus the ambient variables the rest of the stack needs.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
)

type Config struct {
	LogMode  string
	Port     string
	Database DatabaseConfig
	Redis    RedisConfig
	Embed    EmbedConfig
	Vector   VectorConfig
	Weights  [5]float64 // alpha, beta, gamma, delta, epsilon; may be unset (all zero); not read outside this package

	WeightsCacheTTL time.Duration
	SearchSoftMs    int
	SearchHardMs    int
	CandidateLimit  int
}

type DatabaseConfig struct {
	URL    string
	Driver string // "postgres" or "sqlite"
}

type RedisConfig struct {
	Addr string
}

type EmbedConfig struct {
	ServiceURL   string
	Dim          int
	ColdTimeout  time.Duration
	WarmTimeout  time.Duration
	Model        string
}

type VectorConfig struct {
	Backend    string // "memory" or "qdrant"
	QdrantURL  string
	Collection string
}

func Load(log *logger.Logger) Config {
	cfg := Config{
		LogMode: GetEnv("LOG_MODE", "development", log),
		Port:    GetEnv("PORT", "8080", log),
		Database: DatabaseConfig{
			URL:    GetEnv("DATABASE_URL", "", log),
			Driver: GetEnv("DATABASE_DRIVER", "postgres", log),
		},
		Redis: RedisConfig{
			Addr: GetEnv("REDIS_ADDR", "localhost:6379", log),
		},
		Embed: EmbedConfig{
			ServiceURL:  GetEnv("EMBEDDING_SERVICE_URL", "http://localhost:9100", log),
			Dim:         GetEnvAsInt("EMBEDDING_DIM", 384, log),
			ColdTimeout: GetEnvAsDuration("EMBEDDING_COLD_TIMEOUT", 60*time.Second, log),
			WarmTimeout: GetEnvAsDuration("EMBEDDING_WARM_TIMEOUT", 2*time.Second, log),
			Model:       GetEnv("EMBEDDING_MODEL_TAG", "deterministic-fallback-v1", log),
		},
		Vector: VectorConfig{
			Backend:    GetEnv("VECTOR_INDEX_BACKEND", "memory", log),
			QdrantURL:  GetEnv("QDRANT_URL", "http://localhost:6333", log),
			Collection: GetEnv("QDRANT_COLLECTION", "products", log),
		},
		WeightsCacheTTL: GetEnvAsDuration("WEIGHTS_CACHE_TTL", 5*time.Second, log),
		SearchSoftMs:    GetEnvAsInt("SEARCH_SOFT_DEADLINE_MS", 500, log),
		SearchHardMs:    GetEnvAsInt("SEARCH_HARD_DEADLINE_MS", 1500, log),
		CandidateLimit:  GetEnvAsInt("CANDIDATE_SET_LIMIT", 5000, log),
	}
	cfg.Weights = parseDefaultWeights(GetEnv("DEFAULT_WEIGHTS", "", log), log)
	return cfg
}

// parseDefaultWeights parses a comma-separated "alpha,beta,gamma,delta,epsilon"
// string. Any parse failure (wrong count, non-numeric or negative token) is
// logged and the zero value is returned. The result is stored on
// Config.Weights only: the weights service always materializes
// types.DefaultWeights() when no active row exists, whatever DEFAULT_WEIGHTS
// holds.
func parseDefaultWeights(raw string, log *logger.Logger) [5]float64 {
	var out [5]float64
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 5 {
		if log != nil {
			log.Warn("DEFAULT_WEIGHTS malformed, ignoring", "value", raw)
		}
		return out
	}
	parsed := [5]float64{}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			if log != nil {
				log.Warn("DEFAULT_WEIGHTS malformed, ignoring", "value", raw, "error", err)
			}
			return out
		}
		parsed[i] = v
	}
	return parsed
}

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		if log != nil {
			log.Debug("env var not found, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("env var not parseable as int, using default", "env_var", key, "value", valStr, "error", err)
		}
		return defaultVal
	}
	return i
}

func GetEnvAsDuration(key string, defaultVal time.Duration, log *logger.Logger) time.Duration {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	ms, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("env var not parseable as duration(ms), using default", "env_var", key, "value", valStr, "error", err)
		}
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
	StorageSQLite    = "sqlite"
	StoragePostgres  = "postgres"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	GCPProjectID   string `yaml:"gcp_project"`
	GCPLocation    string `yaml:"gcp_location"`
	ModelName      string `yaml:"model_name"`
	EmbeddingModel string `yaml:"embedding_model"`
	UseMockLLM     bool   `yaml:"use_mock_llm"` // only honoured in local mode unless set via env

	StorageBackend string `yaml:"storage_backend"` // memory, firestore, sqlite, postgres
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresURL    string `yaml:"postgres_url"`

	// Triage knobs
	KnowledgeSource    string        `yaml:"knowledge_source"`
	TopK               int           `yaml:"top_k"`
	KnowledgeMinScore  float64       `yaml:"knowledge_min_score"` // 0 keeps every top-k passage
	RecallDepth        int           `yaml:"recall_depth"` // exchanges, window = 2x
	MaxConsensusRounds int           `yaml:"max_consensus_rounds"`
	ConsensusEnabled   bool          `yaml:"consensus_enabled"`
	EngineTimeout      time.Duration `yaml:"engine_timeout"`
	LookupTimeout      time.Duration `yaml:"lookup_timeout"`

	WebSearchEndpoint string        `yaml:"web_search_endpoint"`
	WebCachePath      string        `yaml:"web_cache_path"` // empty disables the cache
	WebCacheTTL       time.Duration `yaml:"web_cache_ttl"`

	NATSURL string `yaml:"nats_url"` // empty disables turn events

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Mode:     ModeLocal,
		Port:     "8080",
		LogLevel: "info",

		GCPLocation:    "us-central1",
		ModelName:      "gemini-2.5-flash-lite",
		EmbeddingModel: "text-embedding-004",
		UseMockLLM:     true,

		StorageBackend: StorageMemory,
		SQLitePath:     "minidxo.sqlite",

		KnowledgeSource:    "source.txt",
		TopK:               2,
		RecallDepth:        3,
		MaxConsensusRounds: 5,
		ConsensusEnabled:   true,
		EngineTimeout:      60 * time.Second,
		LookupTimeout:      15 * time.Second,

		WebSearchEndpoint: "https://api.duckduckgo.com/",
		WebCacheTTL:       24 * time.Hour,

		RateLimitRPS:   1,
		RateLimitBurst: 5,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// LoadFile reads a YAML config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the config from defaults, an optional YAML file (MINIDXO_CONFIG),
// a .env file and MINIDXO_* environment variables, in increasing priority.
func Load() (*Config, error) {
	// .env never overrides variables already present in the environment
	_ = godotenv.Load(".env")

	cfg := Defaults()
	if path := os.Getenv("MINIDXO_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	switch getEnv("MINIDXO_MODE", string(cfg.Mode)) {
	case "gcp":
		cfg.Mode = ModeGCP
	default:
		cfg.Mode = ModeLocal
	}

	cfg.Port = getEnv("MINIDXO_PORT", cfg.Port)
	cfg.LogLevel = getEnv("MINIDXO_LOG_LEVEL", cfg.LogLevel)

	cfg.GCPProjectID = getEnv("MINIDXO_GCP_PROJECT", cfg.GCPProjectID)
	cfg.GCPLocation = getEnv("MINIDXO_GCP_LOCATION", cfg.GCPLocation)
	cfg.ModelName = getEnv("MINIDXO_MODEL_NAME", cfg.ModelName)
	cfg.EmbeddingModel = getEnv("MINIDXO_EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.UseMockLLM = getBoolEnv("MINIDXO_USE_MOCK_LLM", cfg.UseMockLLM && cfg.Mode == ModeLocal)

	cfg.StorageBackend = strings.ToLower(getEnv("MINIDXO_STORAGE_BACKEND", cfg.StorageBackend))
	cfg.SQLitePath = getEnv("MINIDXO_SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresURL = getEnv("MINIDXO_POSTGRES_URL", cfg.PostgresURL)

	cfg.KnowledgeSource = getEnv("MINIDXO_KNOWLEDGE_SOURCE", cfg.KnowledgeSource)
	cfg.TopK = getIntEnv("MINIDXO_TOP_K", cfg.TopK)
	cfg.KnowledgeMinScore = getFloatEnv("MINIDXO_KNOWLEDGE_MIN_SCORE", cfg.KnowledgeMinScore)
	cfg.RecallDepth = getIntEnv("MINIDXO_RECALL_DEPTH", cfg.RecallDepth)
	cfg.MaxConsensusRounds = getIntEnv("MINIDXO_MAX_CONSENSUS_ROUNDS", cfg.MaxConsensusRounds)
	cfg.ConsensusEnabled = getBoolEnv("MINIDXO_CONSENSUS_ENABLED", cfg.ConsensusEnabled)
	cfg.EngineTimeout = getDurationEnv("MINIDXO_ENGINE_TIMEOUT", cfg.EngineTimeout)
	cfg.LookupTimeout = getDurationEnv("MINIDXO_LOOKUP_TIMEOUT", cfg.LookupTimeout)

	cfg.WebSearchEndpoint = getEnv("MINIDXO_WEB_SEARCH_ENDPOINT", cfg.WebSearchEndpoint)
	cfg.WebCachePath = getEnv("MINIDXO_WEB_CACHE_PATH", cfg.WebCachePath)
	cfg.WebCacheTTL = getDurationEnv("MINIDXO_WEB_CACHE_TTL", cfg.WebCacheTTL)

	cfg.NATSURL = getEnv("MINIDXO_NATS_URL", cfg.NATSURL)

	cfg.RateLimitRPS = getFloatEnv("MINIDXO_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getIntEnv("MINIDXO_RATE_LIMIT_BURST", cfg.RateLimitBurst)
}

// WindowSize is the number of transcript messages given to the model.
func (c *Config) WindowSize() int {
	return c.RecallDepth * 2
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		errs = append(errs, errors.New("MINIDXO_GCP_PROJECT must be set in gcp mode"))
	}
	if !c.UseMockLLM && (c.GCPProjectID == "" || c.GCPLocation == "") {
		errs = append(errs, errors.New("a GCP project and location are required unless the mock LLM is used"))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageSQLite:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("MINIDXO_GCP_PROJECT is required for the firestore backend"))
		}
	case StoragePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("MINIDXO_POSTGRES_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be >= 1, got %d", c.TopK))
	}
	if c.RecallDepth < 1 {
		errs = append(errs, fmt.Errorf("recall_depth must be >= 1, got %d", c.RecallDepth))
	}
	if c.MaxConsensusRounds < 1 {
		errs = append(errs, fmt.Errorf("max_consensus_rounds must be >= 1, got %d", c.MaxConsensusRounds))
	}
	if c.EngineTimeout <= 0 || c.LookupTimeout <= 0 {
		errs = append(errs, errors.New("engine and lookup timeouts must be positive"))
	}

	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
)

// Config captures the settings required to boot the guardrail engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Evidence   EvidenceConfig   `yaml:"evidence"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Drift      DriftConfig      `yaml:"drift"`
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// GuardrailsConfig holds rule constants and rule-pack locations.
type GuardrailsConfig struct {
	EvidenceCacheTTLHours int               `yaml:"evidenceCacheTTLHours"`
	LexiconPath           string            `yaml:"lexiconPath"`
	StrictInvariants      bool              `yaml:"strictInvariants"`
	Thresholds            engine.Thresholds `yaml:"thresholds"`
}

// EvidenceConfig configures the evidence-collection service client.
type EvidenceConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	CompetitorPath string        `yaml:"competitorPath"`
	DomainPath     string        `yaml:"domainPath"`
	Timeout        time.Duration `yaml:"timeout"`
	Concurrency    int           `yaml:"concurrency"`
}

// StorageConfig selects the artifact and competitor store.
type StorageConfig struct {
	Driver string       `yaml:"driver"`
	Mongo  MongoConfig  `yaml:"mongo"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of evidence lookups. Driver is redis, memory or none.
type CacheConfig struct {
	Driver       string        `yaml:"driver"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// DriftConfig controls the scheduled drift sweep.
type DriftConfig struct {
	SweepEnabled  bool          `yaml:"sweepEnabled"`
	SweepSchedule string        `yaml:"sweepSchedule"`
	SweepLookback time.Duration `yaml:"sweepLookback"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GUARDRAIL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "mongo":
		if c.Storage.Mongo.URI == "" {
			return errors.New("storage.mongo.uri is required for the mongo driver")
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch strings.ToLower(c.Cache.Driver) {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Drift.SweepEnabled && c.Drift.SweepSchedule == "" {
		return errors.New("drift.sweepSchedule is required when the sweep is enabled")
	}
	return nil
}

// EvidenceTTL is the evidence freshness window and cache lifetime.
func (c *Config) EvidenceTTL() time.Duration {
	if c.Guardrails.EvidenceCacheTTLHours <= 0 {
		return engine.DefaultEvidenceTTL
	}
	return time.Duration(c.Guardrails.EvidenceCacheTTLHours) * time.Hour
}

// Thresholds returns the configured rule constants with the evidence TTL applied.
func (c *Config) Thresholds() engine.Thresholds {
	return c.Guardrails.Thresholds.WithEvidenceTTL(c.EvidenceTTL())
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Guardrails: GuardrailsConfig{
			EvidenceCacheTTLHours: 168,
			LexiconPath:           "configs/lexicon.yaml",
			Thresholds:            engine.DefaultThresholds(),
		},
		Evidence: EvidenceConfig{
			CompetitorPath: "/api/v1/evidence/competitor",
			DomainPath:     "/api/v1/evidence/domain",
			Timeout:        5 * time.Second,
			Concurrency:    4,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Mongo:  MongoConfig{Database: "guardrails", Timeout: 10 * time.Second},
			SQLite: SQLiteConfig{Path: "data/guardrails.db"},
		},
		Cache: CacheConfig{
			Driver:       "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Drift: DriftConfig{
			SweepEnabled:  false,
			SweepSchedule: "@every 1h",
			SweepLookback: 24 * time.Hour,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GUARDRAIL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GUARDRAIL_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("GUARDRAIL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GUARDRAIL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("EVIDENCE_CACHE_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			cfg.Guardrails.EvidenceCacheTTLHours = hours
		}
	}
	if v := os.Getenv("GUARDRAIL_LEXICON_PATH"); v != "" {
		cfg.Guardrails.LexiconPath = v
	}
	if v := os.Getenv("GUARDRAIL_STRICT_INVARIANTS"); v != "" {
		cfg.Guardrails.StrictInvariants = isTrue(v)
	}
	if v := os.Getenv("EVIDENCE_BASE_URL"); v != "" {
		cfg.Evidence.BaseURL = v
	}
	if v := os.Getenv("EVIDENCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Evidence.Timeout = d
		}
	}
	if v := os.Getenv("GUARDRAIL_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("GUARDRAIL_MONGO_URI"); v != "" {
		cfg.Storage.Mongo.URI = v
	}
	if v := os.Getenv("GUARDRAIL_MONGO_DATABASE"); v != "" {
		cfg.Storage.Mongo.Database = v
	}
	if v := os.Getenv("GUARDRAIL_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("GUARDRAIL_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("GUARDRAIL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("GUARDRAIL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("GUARDRAIL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("GUARDRAIL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("GUARDRAIL_CACHE_TLS"); v != "" {
		cfg.Cache.TLS = isTrue(v)
	}
	if v := os.Getenv("GUARDRAIL_DRIFT_SWEEP_ENABLED"); v != "" {
		cfg.Drift.SweepEnabled = isTrue(v)
	}
	if v := os.Getenv("GUARDRAIL_DRIFT_SWEEP_SCHEDULE"); v != "" {
		cfg.Drift.SweepSchedule = v
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

// Package config loads moodmatch configuration from an optional file and
// MOODMATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MOODMATCH_SERVER_ADDR.
const EnvPrefix = "MOODMATCH"

// Sentinel errors.
var (
	// ErrMissingToken is returned when neither genius.token nor a readable
	// genius.token_file is configured.
	ErrMissingToken = errors.New("missing Genius API token")

	// ErrUnknownBackend is returned for an unsupported store.backend value.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Config is the typed view of the loaded configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Genius  GeniusConfig  `mapstructure:"genius"`
	Model   ModelConfig   `mapstructure:"model"`
	Ranking RankingConfig `mapstructure:"ranking"`
	Spotify SpotifyConfig `mapstructure:"spotify"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// StoreConfig selects and configures the song store backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // "sqlite", "postgres" or "mongo"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// GeniusConfig configures the lyrics provider.
type GeniusConfig struct {
	Token         string  `mapstructure:"token"`
	TokenFile     string  `mapstructure:"token_file"`
	BaseURL       string  `mapstructure:"base_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// ModelConfig points at the classifier artifacts.
type ModelConfig struct {
	Manifest string `mapstructure:"manifest"`
	Watch    bool   `mapstructure:"watch"`
}

// RankingConfig holds similarity ranking parameters.
type RankingConfig struct {
	TopN               int     `mapstructure:"top_n"`
	MinDF              int     `mapstructure:"min_df"`
	Components         int     `mapstructure:"components"`
	Seed               uint64  `mapstructure:"seed"`
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
}

// SpotifyConfig enables link enrichment when both fields are set.
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// Enabled reports whether Spotify credentials are configured.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// IngestConfig configures bulk ingestion.
type IngestConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// defaults mirrors Default() as viper keys so env overrides bind to every key.
var defaults = map[string]any{
	"server.addr":                 "127.0.0.1:8080",
	"server.shutdown_timeout":     10 * time.Second,
	"log.level":                   "info",
	"log.format":                  "json",
	"store.backend":               "sqlite",
	"store.sqlite.path":           "moodmatch.db",
	"store.postgres.url":          "",
	"store.mongo.uri":             "mongodb://localhost:27017",
	"store.mongo.database":        "moodmatch",
	"store.mongo.collection":      "songs",
	"genius.token":                "",
	"genius.token_file":           "secrets/genius_api_secret",
	"genius.base_url":             "https://api.genius.com",
	"genius.rate_per_second":      2.0,
	"model.manifest":              "artifacts/model.yaml",
	"model.watch":                 false,
	"ranking.top_n":               3,
	"ranking.min_df":              5,
	"ranking.components":          300,
	"ranking.seed":                uint64(42),
	"ranking.duplicate_threshold": 0.999,
	"spotify.client_id":           "",
	"spotify.client_secret":       "",
	"ingest.concurrency":          5,
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults are static; a decode failure is a programming error
		panic(err)
	}
	return cfg
}

// Load reads configuration from path (any format viper understands; empty
// means defaults only) and applies MOODMATCH_* environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Store.Backend)
	}
	if c.Ranking.TopN <= 0 {
		return fmt.Errorf("ranking.top_n must be positive, got %d", c.Ranking.TopN)
	}
	if c.Ranking.MinDF <= 0 {
		return fmt.Errorf("ranking.min_df must be positive, got %d", c.Ranking.MinDF)
	}
	if c.Ranking.Components <= 0 {
		return fmt.Errorf("ranking.components must be positive, got %d", c.Ranking.Components)
	}
	if c.Ranking.DuplicateThreshold <= 0 || c.Ranking.DuplicateThreshold > 1 {
		return fmt.Errorf("ranking.duplicate_threshold must be in (0, 1], got %v", c.Ranking.DuplicateThreshold)
	}
	return nil
}

// GeniusToken returns the configured token, reading genius.token_file when
// genius.token is empty.
func (c *Config) GeniusToken() (string, error) {
	if tok := strings.TrimSpace(c.Genius.Token); tok != "" {
		return tok, nil
	}
	if c.Genius.TokenFile == "" {
		return "", ErrMissingToken
	}
	data, err := os.ReadFile(c.Genius.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrMissingToken, c.Genius.TokenFile)
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingToken, c.Genius.TokenFile)
	}
	return tok, nil
}

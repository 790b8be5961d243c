package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Kits    KitsConfig
	ClaimDB ClaimDBConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"kitvault-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     string `envconfig:"API_KEYS" default:""` // comma-separated
}

// KitsConfig holds kit catalog and claim behavior settings.
type KitsConfig struct {
	// Dir is the directory holding one YAML file per kit definition.
	Dir string `envconfig:"KITS_DIR" default:"./data/kits"`

	// ClaimDebounce is the minimum interval between claim attempts from
	// the same account through the HTTP surface.
	ClaimDebounce time.Duration `envconfig:"KITS_CLAIM_DEBOUNCE" default:"200ms"`

	// PerPage is the default page size for the kit listing.
	PerPage int `envconfig:"KITS_PER_PAGE" default:"28"`

	// SeedStarter writes a sample starter kit when the kit directory is
	// created empty.
	SeedStarter bool `envconfig:"KITS_SEED_STARTER" default:"true"`

	// ConsoleCommands enables the elevated-command path; when disabled,
	// kits' console commands are skipped without error.
	ConsoleCommands bool `envconfig:"KITS_CONSOLE_COMMANDS" default:"true"`
}

// ClaimDBConfig holds claim-record store settings.
type ClaimDBConfig struct {
	Type string `envconfig:"CLAIM_DB_TYPE" default:"sqlite"` // sqlite, mysql, or redis
	Path string `envconfig:"CLAIM_DB_PATH" default:"./data/claims.db"`

	// MySQL settings
	Host     string `envconfig:"CLAIM_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CLAIM_DB_PORT" default:"3306"`
	Name     string `envconfig:"CLAIM_DB_NAME" default:"kitvault"`
	User     string `envconfig:"CLAIM_DB_USER" default:"root"`
	Password string `envconfig:"CLAIM_DB_PASS" default:""`

	// Redis settings
	RedisHost     string `envconfig:"CLAIM_REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"CLAIM_REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"CLAIM_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"CLAIM_REDIS_DB" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIKeyList returns the configured API keys, trimmed, empty entries dropped.
func (a *AppConfig) APIKeyList() []string {
	if a.APIKeys == "" {
		return nil
	}
	parts := strings.Split(a.APIKeys, ",")
	keys := parts[:0]
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// DSN returns the MySQL data source name.
func (d *ClaimDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisAddress returns the Redis address in host:port format.
func (d *ClaimDBConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", d.RedisHost, d.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

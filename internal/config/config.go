package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// ScoringConfig points at the scoring parameter and exercise catalog documents.
type ScoringConfig struct {
	ConfigPath  string `yaml:"config_path"`
	CatalogPath string `yaml:"catalog_path"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REPRANK_ and underscore-separated paths:
//
//	REPRANK_SERVER_HOST, REPRANK_SERVER_PORT,
//	REPRANK_DB_HOST, REPRANK_DB_PORT, REPRANK_DB_NAME,
//	REPRANK_DB_USER, REPRANK_DB_PASSWORD, REPRANK_DB_SSLMODE,
//	REPRANK_AUTH_API_KEY,
//	REPRANK_SCORING_CONFIG_PATH, REPRANK_SCORING_CATALOG_PATH,
//	REPRANK_TAILSCALE_ENABLED, REPRANK_TAILSCALE_HOSTNAME, REPRANK_TAILSCALE_STATE_DIR,
//	REPRANK_METRICS_ENABLED
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPRANK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPRANK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPRANK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REPRANK_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REPRANK_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REPRANK_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REPRANK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REPRANK_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REPRANK_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPRANK_SCORING_CONFIG_PATH"); v != "" {
		cfg.Scoring.ConfigPath = v
	}
	if v := os.Getenv("REPRANK_SCORING_CATALOG_PATH"); v != "" {
		cfg.Scoring.CatalogPath = v
	}
	if v := os.Getenv("REPRANK_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("REPRANK_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("REPRANK_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("REPRANK_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Scoring.ConfigPath == "" {
		cfg.Scoring.ConfigPath = "configs/scoring.yaml"
	}
	if cfg.Scoring.CatalogPath == "" {
		cfg.Scoring.CatalogPath = "configs/catalog.yaml"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "reprank"
	}
	if cfg.Tailscale.StateDir == "" {
		cfg.Tailscale.StateDir = "tsnet-state"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}

// Profile is the body profile document read by the offline scorer.
type Profile struct {
	BodyWeightKg  float64 `yaml:"body_weight_kg"`
	Sex           string  `yaml:"sex"`
	BirthDate     string  `yaml:"birth_date"`
	TrainingSince string  `yaml:"training_since"`
}

// LoadProfile reads a body profile YAML file. Dates use YYYY-MM-DD and are optional.
func LoadProfile(path string) (*models.BodyProfileRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	if p.BodyWeightKg <= 0 {
		return nil, fmt.Errorf("profile: body_weight_kg must be positive")
	}
	sex, err := scoring.ParseSex(p.Sex)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	row := &models.BodyProfileRow{BodyWeightKg: p.BodyWeightKg, Sex: string(sex)}
	if row.BirthDate, err = parseDate(p.BirthDate); err != nil {
		return nil, fmt.Errorf("profile: birth_date: %w", err)
	}
	if row.TrainingSince, err = parseDate(p.TrainingSince); err != nil {
		return nil, fmt.Errorf("profile: training_since: %w", err)
	}
	return row, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

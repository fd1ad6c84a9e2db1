package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pediclinic/internal/slots"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Locks struct {
		Backend     string `yaml:"backend"` // "local" or "redis"
		TTLSeconds  int    `yaml:"ttl_seconds"`
		WaitSeconds int    `yaml:"wait_seconds"`
		Prefix      string `yaml:"prefix"`
	} `yaml:"locks"`

	Center struct {
		Timezone           string              `yaml:"timezone"`
		OperatingHours     []string            `yaml:"operating_hours"`
		Schedule           *slots.ScheduleInfo `yaml:"schedule,omitempty"`
		MaxSessionsPerSlot int                 `yaml:"max_sessions_per_slot"`
		SessionMinutes     int                 `yaml:"session_minutes"`
		MaxSeriesLength    int                 `yaml:"max_series_length"`
	} `yaml:"center"`

	API struct {
		Port      int     `yaml:"port"`
		RateLimit float64 `yaml:"rate_limit"`
		RateBurst int     `yaml:"rate_burst"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Roster struct {
		Path                  string `yaml:"path"`
		ReloadIntervalSeconds int    `yaml:"reload_interval_seconds"`
	} `yaml:"roster"`
}

// Load reads path (default configs/config.yaml). A .env file next to the working
// directory is loaded first so ${VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	// missing .env is fine
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/pediclinic.db"
	}
	if c.Locks.Backend == "" {
		c.Locks.Backend = "local"
	}
	if c.Center.Timezone == "" {
		c.Center.Timezone = "UTC"
	}
	if c.Center.MaxSessionsPerSlot <= 0 {
		c.Center.MaxSessionsPerSlot = slots.MaxSessionsPerSlot
	}
	if c.Center.SessionMinutes <= 0 {
		c.Center.SessionMinutes = slots.SessionDurationMinutes
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Roster.Path == "" {
		c.Roster.Path = "configs/roster.yaml"
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Locks.Backend {
	case "local":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("locks.backend is redis but redis.address is empty")
		}
		if c.LockTTL() < 2*c.LockWait() {
			return fmt.Errorf("locks.ttl_seconds (%s) must be at least twice locks.wait_seconds (%s)", c.LockTTL(), c.LockWait())
		}
	default:
		return fmt.Errorf("locks.backend: unknown value %q, expected local or redis", c.Locks.Backend)
	}
	if c.Center.MaxSessionsPerSlot != slots.MaxSessionsPerSlot {
		return fmt.Errorf("center.max_sessions_per_slot: the center holds %d sessions per slot, got %d", slots.MaxSessionsPerSlot, c.Center.MaxSessionsPerSlot)
	}
	if c.Center.SessionMinutes != slots.SessionDurationMinutes {
		return fmt.Errorf("center.session_minutes: sessions last %d minutes, got %d", slots.SessionDurationMinutes, c.Center.SessionMinutes)
	}
	if _, err := time.LoadLocation(c.Center.Timezone); err != nil {
		return fmt.Errorf("center.timezone: %w", err)
	}
	if len(c.Center.OperatingHours) == 0 && c.Center.Schedule == nil {
		return fmt.Errorf("center: operating_hours or schedule is required")
	}
	if _, err := c.OperatingHours(); err != nil {
		return fmt.Errorf("center: %w", err)
	}
	if c.API.RateLimit < 0 || c.API.RateBurst < 0 {
		return fmt.Errorf("api: rate_limit and rate_burst cannot be negative")
	}
	return nil
}

// OperatingHours builds the slot set from the explicit list, or from the generated
// schedule when no list is given.
func (c *Config) OperatingHours() (slots.OperatingHours, error) {
	if len(c.Center.OperatingHours) > 0 {
		return slots.NewOperatingHours(c.Center.OperatingHours...)
	}
	if c.Center.Schedule == nil {
		return slots.OperatingHours{}, fmt.Errorf("no operating hours configured")
	}
	return slots.GenerateHours(*c.Center.Schedule, c.Center.SessionMinutes)
}

// Location returns the center's time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Center.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) LockTTL() time.Duration {
	if c.Locks.TTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Locks.TTLSeconds) * time.Second
}

func (c *Config) LockWait() time.Duration {
	if c.Locks.WaitSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Locks.WaitSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) RosterReloadInterval() time.Duration {
	if c.Roster.ReloadIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Roster.ReloadIntervalSeconds) * time.Second
}

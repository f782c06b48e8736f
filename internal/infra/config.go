// Package infra handles configuration loading and infrastructure wiring.
package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/cases"
	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/events"
	"github.com/ruslano69/firvault/pkg/reports"
)

// Config is the top-level configuration structure for firvault.
type Config struct {
	Server          ServerConfig   `yaml:"server"`
	Database        DatabaseConfig `yaml:"database"`
	Redis           RedisConfig    `yaml:"redis"`            // station cache; optional
	StationCacheTTL time.Duration  `yaml:"station_cache_ttl"` // default 10m
	Events          events.Config  `yaml:"events"`
	Log             LogConfig      `yaml:"log"`
	Cases           CasesConfig    `yaml:"cases"`
	Audit           AuditConfig    `yaml:"audit"`
	Reports         ReportsConfig  `yaml:"reports"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`          // default ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default 10s
}

// DatabaseConfig describes the primary (optional) and fallback pools.
type DatabaseConfig struct {
	PrimaryURL  string         `yaml:"primary_url"`  // empty = fallback only
	PrimaryType string         `yaml:"primary_type"` // default postgres
	SSL         bool           `yaml:"ssl"`          // true → sslmode=require
	SSLCA       string         `yaml:"ssl_ca"`
	Fallback    FallbackConfig `yaml:"fallback"`
	PoolMax     int            `yaml:"pool_max"`     // default 10
	IdleTimeout time.Duration  `yaml:"idle_timeout"` // default 30s
	AutoMigrate bool           `yaml:"auto_migrate"` // apply DDL on startup
}

// FallbackConfig is the always-present fallback endpoint.
type FallbackConfig struct {
	Type     string `yaml:"type"` // default postgres
	DSN      string `yaml:"dsn"`  // overrides host/port/...
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig is a minimal Redis connection config.
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // host:port; empty = no cache
	Password string `yaml:"password"` // empty = no auth
	DB       int    `yaml:"db"`       // 0-based
}

// LogConfig selects zerolog level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // default info
	Format string `yaml:"format"` // console | json
}

// CasesConfig tunes case registration.
type CasesConfig struct {
	CreateAttempts int `yaml:"create_attempts"` // retries on FIR number conflict
}

// AuditConfig controls the access audit trail.
// Entries always go to the process log; File adds a JSON lines file.
type AuditConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Async      bool   `yaml:"async"`
}

// ReportsConfig limits ad-hoc report queries.
type ReportsConfig struct {
	MaxRows int `yaml:"max_rows"` // default 1000
}

// defaultConfig returns a config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			PrimaryType: "postgres",
			Fallback: FallbackConfig{
				Type:     "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				Database: "firvault",
			},
			PoolMax:     adapters.DefaultMaxConns,
			IdleTimeout: adapters.DefaultIdleTimeout,
		},
		StationCacheTTL: 10 * time.Minute,
		Log:             LogConfig{Level: "info", Format: "console"},
		Cases:           CasesConfig{CreateAttempts: cases.DefaultCreateAttempts},
		Audit:           AuditConfig{Async: true},
		Reports:         ReportsConfig{MaxRows: reports.DefaultMaxRows},
	}
}

// LoadConfig builds the configuration in three layers:
// defaults, then the YAML file at path (skipped when path is empty),
// then FIRVAULT_* environment variables. A .env file in the working
// directory is loaded into the environment first, if present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	db := &c.Database
	str("FIRVAULT_DATABASE_URL", &db.PrimaryURL)
	str("FIRVAULT_PRIMARY_TYPE", &db.PrimaryType)
	flag("FIRVAULT_DB_SSL", &db.SSL)
	str("FIRVAULT_DB_SSL_CA", &db.SSLCA)
	str("FIRVAULT_FALLBACK_TYPE", &db.Fallback.Type)
	str("FIRVAULT_FALLBACK_DSN", &db.Fallback.DSN)
	str("FIRVAULT_FALLBACK_HOST", &db.Fallback.Host)
	num("FIRVAULT_FALLBACK_PORT", &db.Fallback.Port)
	str("FIRVAULT_FALLBACK_USER", &db.Fallback.User)
	str("FIRVAULT_FALLBACK_PASSWORD", &db.Fallback.Password)
	str("FIRVAULT_FALLBACK_DATABASE", &db.Fallback.Database)
	num("FIRVAULT_DB_POOL_MAX", &db.PoolMax)
	flag("FIRVAULT_AUTO_MIGRATE", &db.AutoMigrate)

	var idleMS int
	num("FIRVAULT_DB_IDLE_TIMEOUT_MS", &idleMS)
	if idleMS > 0 {
		db.IdleTimeout = time.Duration(idleMS) * time.Millisecond
	}

	str("FIRVAULT_LISTEN_ADDR", &c.Server.Addr)
	str("FIRVAULT_LOG_LEVEL", &c.Log.Level)
	str("FIRVAULT_LOG_FORMAT", &c.Log.Format)

	str("FIRVAULT_REDIS_ADDR", &c.Redis.Addr)
	str("FIRVAULT_REDIS_PASSWORD", &c.Redis.Password)
	num("FIRVAULT_REDIS_DB", &c.Redis.DB)
	dur("FIRVAULT_STATION_CACHE_TTL", &c.StationCacheTTL)

	ev := &c.Events
	str("FIRVAULT_EVENTS_TYPE", &ev.Type)
	str("FIRVAULT_EVENTS_HOST", &ev.Host)
	num("FIRVAULT_EVENTS_PORT", &ev.Port)
	str("FIRVAULT_EVENTS_USER", &ev.User)
	str("FIRVAULT_EVENTS_PASSWORD", &ev.Password)
	str("FIRVAULT_EVENTS_VHOST", &ev.VHost)
	str("FIRVAULT_EVENTS_QUEUE", &ev.Queue)
	flag("FIRVAULT_EVENTS_TLS", &ev.UseTLS)
	str("FIRVAULT_EVENTS_TOPIC", &ev.Topic)
	str("FIRVAULT_EVENTS_REDIS_ADDR", &ev.RedisAddr)
	dur("FIRVAULT_EVENTS_STATE_TTL", &ev.StateTTL)
	if v, ok := lookup("FIRVAULT_EVENTS_BROKERS"); ok && v != "" {
		ev.Brokers = splitList(v)
	}

	num("FIRVAULT_CREATE_RETRY_ATTEMPTS", &c.Cases.CreateAttempts)

	str("FIRVAULT_AUDIT_FILE", &c.Audit.File)
	flag("FIRVAULT_AUDIT_ASYNC", &c.Audit.Async)

	num("FIRVAULT_REPORTS_MAX_ROWS", &c.Reports.MaxRows)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Database.Fallback.Type == "" {
		return fmt.Errorf("config: database.fallback.type is required")
	}
	if c.Database.PrimaryURL != "" && c.Database.PrimaryType == "" {
		return fmt.Errorf("config: database.primary_type is required when primary_url is set")
	}
	if _, err := cases.Schema(c.Database.Fallback.Type); err != nil {
		return fmt.Errorf("config: database.fallback.type: %w", err)
	}
	if c.Database.PrimaryURL != "" {
		if _, err := cases.Schema(c.Database.PrimaryType); err != nil {
			return fmt.Errorf("config: database.primary_type: %w", err)
		}
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("config: database.pool_max must be >= 1, got %d", c.Database.PoolMax)
	}
	if c.Cases.CreateAttempts < 1 {
		return fmt.Errorf("config: cases.create_attempts must be >= 1, got %d", c.Cases.CreateAttempts)
	}
	return nil
}

// DataStore converts the database section into pool configurations.
func (d DatabaseConfig) DataStore() datastore.Config {
	var ssl adapters.SSLConfig
	if d.SSL {
		ssl = adapters.SSLConfig{Mode: "require", CAPath: d.SSLCA}
	}

	var out datastore.Config
	if d.PrimaryURL != "" {
		out.Primary = &adapters.Config{
			Name:        "primary",
			Type:        d.PrimaryType,
			DSN:         d.PrimaryURL,
			MaxConns:    d.PoolMax,
			IdleTimeout: d.IdleTimeout,
			SSL:         ssl,
		}
	}

	fb := d.Fallback
	out.Fallback = adapters.Config{
		Name:        "fallback",
		Type:        fb.Type,
		DSN:         fb.DSN,
		Host:        fb.Host,
		Port:        fb.Port,
		User:        fb.User,
		Password:    fb.Password,
		Database:    fb.Database,
		MaxConns:    d.PoolMax,
		IdleTimeout: d.IdleTimeout,
	}
	if fb.Type != "sqlite" {
		out.Fallback.SSL = ssl
	}
	return out
}

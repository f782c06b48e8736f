package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruslano69/firvault/pkg/cases"
	"github.com/ruslano69/firvault/pkg/reports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firvault.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, ожидалось :8080", cfg.Server.Addr)
	}
	if cfg.Database.PrimaryURL != "" {
		t.Errorf("primary по умолчанию не настроен, получено %q", cfg.Database.PrimaryURL)
	}
	if cfg.Database.Fallback.Type != "postgres" || cfg.Database.Fallback.Port != 5432 {
		t.Errorf("неверный fallback по умолчанию: %+v", cfg.Database.Fallback)
	}
	if cfg.Database.PoolMax != 10 || cfg.Database.IdleTimeout != 30*time.Second {
		t.Errorf("неверные лимиты пула: %d, %v", cfg.Database.PoolMax, cfg.Database.IdleTimeout)
	}
	if cfg.Cases.CreateAttempts != cases.DefaultCreateAttempts {
		t.Errorf("CreateAttempts = %d", cfg.Cases.CreateAttempts)
	}
	if cfg.Reports.MaxRows != reports.DefaultMaxRows {
		t.Errorf("Reports.MaxRows = %d", cfg.Reports.MaxRows)
	}
}

func TestReportsMaxRowsFromEnv(t *testing.T) {
	t.Setenv("FIRVAULT_REPORTS_MAX_ROWS", "50")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Reports.MaxRows != 50 {
		t.Errorf("Reports.MaxRows = %d, ожидалось 50", cfg.Reports.MaxRows)
	}
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
database:
  primary_url: "postgresql://app@db1:5432/firvault"
  fallback:
    type: sqlite
    dsn: /var/lib/firvault/fallback.db
  pool_max: 4
  idle_timeout: 5s
station_cache_ttl: 1m
events:
  type: kafka
  brokers: ["k1:9092"]
  topic: fir-events
log:
  level: debug
  format: json
`)

	t.Setenv("FIRVAULT_LISTEN_ADDR", ":9100")
	t.Setenv("FIRVAULT_DB_SSL", "true")
	t.Setenv("FIRVAULT_DB_IDLE_TIMEOUT_MS", "1500")
	t.Setenv("FIRVAULT_EVENTS_BROKERS", "k1:9092, k2:9092")
	t.Setenv("FIRVAULT_CREATE_RETRY_ATTEMPTS", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Addr != ":9100" {
		t.Errorf("переменная окружения должна перекрывать YAML: %q", cfg.Server.Addr)
	}
	if cfg.Database.PoolMax != 4 {
		t.Errorf("PoolMax = %d, ожидалось 4", cfg.Database.PoolMax)
	}
	if cfg.Database.IdleTimeout != 1500*time.Millisecond {
		t.Errorf("IdleTimeout = %v", cfg.Database.IdleTimeout)
	}
	if !cfg.Database.SSL {
		t.Error("ожидался SSL")
	}
	if cfg.StationCacheTTL != time.Minute {
		t.Errorf("StationCacheTTL = %v", cfg.StationCacheTTL)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Events.Brokers)
	}
	if cfg.Events.Topic != "fir-events" || cfg.Log.Format != "json" {
		t.Errorf("неверные значения из YAML: %+v %+v", cfg.Events, cfg.Log)
	}
	if cfg.Cases.CreateAttempts != 7 {
		t.Errorf("CreateAttempts = %d", cfg.Cases.CreateAttempts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("ожидалась ошибка для отсутствующего файла")
	}

	if _, err := LoadConfig(writeConfig(t, "server: [")); err == nil {
		t.Error("ожидалась ошибка разбора YAML")
	}

	t.Setenv("FIRVAULT_DB_POOL_MAX", "many")
	if _, err := LoadConfig(""); err == nil {
		t.Error("ожидалась ошибка для нечислового FIRVAULT_DB_POOL_MAX")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"fallback type", func(c *Config) { c.Database.Fallback.Type = "" }},
		{"primary type", func(c *Config) { c.Database.PrimaryURL = "x"; c.Database.PrimaryType = "" }},
		{"unknown fallback type", func(c *Config) { c.Database.Fallback.Type = "oracle" }},
		{"unknown primary type", func(c *Config) { c.Database.PrimaryURL = "x"; c.Database.PrimaryType = "db2" }},
		{"pool max", func(c *Config) { c.Database.PoolMax = 0 }},
		{"attempts", func(c *Config) { c.Cases.CreateAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("ожидалась ошибка валидации")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("конфигурация по умолчанию должна быть валидной: %v", err)
	}
}

func TestDataStoreConfig(t *testing.T) {
	db := defaultConfig().Database
	db.SSL = true

	ds := db.DataStore()
	if ds.Primary != nil {
		t.Error("без primary_url primary не настраивается")
	}
	if ds.Fallback.Name != "fallback" || ds.Fallback.Host != "localhost" || ds.Fallback.SSL.Mode != "require" {
		t.Errorf("неверный fallback: %+v", ds.Fallback)
	}

	db.PrimaryURL = "postgresql://db1/firvault"
	db.Fallback = FallbackConfig{Type: "sqlite", DSN: "fallback.db"}
	ds = db.DataStore()
	if ds.Primary == nil || ds.Primary.DSN != db.PrimaryURL || ds.Primary.SSL.Mode != "require" {
		t.Errorf("неверный primary: %+v", ds.Primary)
	}
	if ds.Fallback.SSL.Required() {
		t.Error("sqlite fallback не использует SSL")
	}
}

// Для каждого поддерживаемого типа СУБД есть схема
func TestConfigValidateDatabaseTypes(t *testing.T) {
	for _, typ := range []string{cases.DialectPostgres, cases.DialectSQLite, cases.DialectMySQL, cases.DialectMSSQL} {
		cfg := defaultConfig()
		cfg.Database.Fallback.Type = typ
		cfg.Database.PrimaryURL = "x"
		cfg.Database.PrimaryType = typ
		if err := cfg.Validate(); err != nil {
			t.Errorf("тип %s должен быть допустим: %v", typ, err)
		}
	}
}

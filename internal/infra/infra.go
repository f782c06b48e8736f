package infra

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	// Адаптеры регистрируются в фабрике через init()
	_ "github.com/ruslano69/firvault/pkg/adapters/mssql"
	_ "github.com/ruslano69/firvault/pkg/adapters/mysql"
	_ "github.com/ruslano69/firvault/pkg/adapters/postgres"
	_ "github.com/ruslano69/firvault/pkg/adapters/sqlite"

	"github.com/ruslano69/firvault/pkg/audit"
	"github.com/ruslano69/firvault/pkg/cases"
	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/events"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/fir"
	"github.com/ruslano69/firvault/pkg/reports"
)

// DevDatabaseFile is the sqlite fallback used in dev mode when none is configured.
const DevDatabaseFile = "firvault-dev.db"

// Infra holds all live infrastructure handles for the running service.
type Infra struct {
	DB        *datastore.DB
	Redis     *redis.Client // nil when no cache is configured
	Publisher events.Publisher
	Repo      *cases.Repository
	Allocator *fir.Allocator
	Cases     *cases.Service
	Audit     *audit.Trail
	Reports   *reports.Runner

	log zerolog.Logger

	// dev-mode in-process Redis; nil in production
	mini *miniredis.Miniredis
}

// NewLogger builds the process logger from LogConfig.
func NewLogger(cfg LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("config: log.level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Setup opens the pools, Redis and the event publisher, then wires services.
//   - dev=true: in-process miniredis when no Redis is configured, sqlite
//     fallback in the working directory when fallback is not sqlite, schema
//     applied on startup.
//   - dev=false: connects to what cfg describes.
//
// Pools are lazy: an unreachable database does not fail Setup.
func Setup(ctx context.Context, cfg *Config, dev bool, logger zerolog.Logger) (*Infra, error) {
	inf := &Infra{log: logger}

	dbCfg := cfg.Database
	if dev {
		if dbCfg.Fallback.Type != "sqlite" {
			dbCfg.Fallback = FallbackConfig{Type: "sqlite", DSN: filepath.Join(".", DevDatabaseFile)}
		}
		dbCfg.AutoMigrate = true
	}

	db, err := datastore.Open(ctx, dbCfg.DataStore(), logger)
	if err != nil {
		return nil, fmt.Errorf("infra: %w", err)
	}
	inf.DB = db

	if err := inf.setupRedis(ctx, cfg.Redis, dev); err != nil {
		inf.Close()
		return nil, err
	}

	if err := inf.setupPublisher(ctx, cfg.Events); err != nil {
		inf.Close()
		return nil, err
	}

	var stations fir.StationLookup = fir.NewDBStations(db)
	if inf.Redis != nil {
		stations = fir.NewCachedStations(stations, inf.Redis, cfg.StationCacheTTL, logger)
	}

	inf.Repo = cases.NewRepository(db)
	inf.Allocator = fir.NewAllocator(db, stations, logger)
	inf.Cases, err = cases.NewService(inf.Repo, inf.Allocator, inf.Publisher, logger, cfg.Cases.CreateAttempts)
	if err != nil {
		inf.Close()
		return nil, fmt.Errorf("infra: cases service: %w", err)
	}

	inf.Reports = reports.NewRunner(db, cfg.Reports.MaxRows, logger)

	if err := inf.setupAudit(cfg.Audit); err != nil {
		inf.Close()
		return nil, err
	}

	if dbCfg.AutoMigrate {
		if _, err := inf.Migrate(ctx); err != nil {
			inf.Close()
			return nil, err
		}
	}

	return inf, nil
}

// Migrate applies the schema to every configured pool in that pool's own
// dialect, so the fallback has its tables before the first failover.
// An unreachable pool is skipped with a warning; a pool that rejects the
// DDL fails the migration. At least one pool must be migrated.
func (inf *Infra) Migrate(ctx context.Context) ([]cases.SchemaResult, error) {
	results := cases.ApplySchemaAll(ctx, inf.DB.Backends())

	applied := 0
	for _, res := range results {
		switch {
		case res.Err == nil:
			applied++
			inf.log.Info().Str("backend", res.Name).Str("dialect", res.Dialect).Msg("schema applied")
		case faults.Is(res.Err, faults.KindBackendUnavailable):
			inf.log.Warn().Err(res.Err).Str("backend", res.Name).Str("dialect", res.Dialect).
				Msg("database unavailable, schema not applied")
		default:
			return results, fmt.Errorf("infra: apply schema to %s (%s): %w", res.Name, res.Dialect, res.Err)
		}
	}
	if applied == 0 {
		return results, faults.Newf(faults.KindBackendUnavailable, "infra: apply schema", "no database reachable")
	}
	return results, nil
}

func (inf *Infra) setupRedis(ctx context.Context, cfg RedisConfig, dev bool) error {
	switch {
	case cfg.Addr != "":
		inf.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case dev:
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("infra: miniredis: %w", err)
		}
		inf.mini = mr
		inf.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		inf.log.Info().Str("redis", mr.Addr()).Msg("dev: in-process miniredis started")
	default:
		return nil
	}

	// Кэш участков деградирует до БД, поэтому недоступный Redis не фатален
	if err := inf.Redis.Ping(ctx).Err(); err != nil {
		inf.log.Warn().Err(err).Str("redis", cfg.Addr).Msg("redis unavailable, station cache degraded")
	}
	return nil
}

func (inf *Infra) setupPublisher(ctx context.Context, cfg events.Config) error {
	// Redis-события без отдельного адреса идут в общий клиент
	if cfg.Type == "redis" && cfg.RedisAddr == "" && inf.Redis != nil {
		inf.Publisher = events.NewRedisPublisherWithClient(inf.Redis, cfg.StateTTL)
		return nil
	}

	pub, err := events.NewPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("infra: events: %w", err)
	}
	inf.Publisher = pub
	return nil
}

func (inf *Infra) setupAudit(cfg AuditConfig) error {
	logger := inf.log.With().Str("component", "audit").Logger()
	appenders := []audit.Appender{audit.NewLogAppender(logger)}

	if cfg.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("infra: audit: %w", err)
		}
		appenders = append(appenders, fa)
	}

	inf.Audit = audit.NewTrail(audit.Config{
		Async: cfg.Async,
		OnError: func(err error) {
			logger.Error().Err(err).Msg("audit write failed")
		},
	}, audit.NewMultiAppender(appenders...))
	return nil
}

// Close releases all infrastructure resources.
func (inf *Infra) Close() {
	if inf.Audit != nil {
		if err := inf.Audit.Close(); err != nil {
			inf.log.Warn().Err(err).Msg("close audit trail")
		}
	}
	if inf.Publisher != nil {
		_ = inf.Publisher.Close()
	}
	if inf.Redis != nil {
		// Уже закрыт, если его разделял RedisPublisher
		_ = inf.Redis.Close()
	}
	if inf.mini != nil {
		inf.mini.Close()
	}
	if inf.DB != nil {
		if err := inf.DB.Close(); err != nil {
			inf.log.Warn().Err(err).Msg("close database pools")
		}
	}
}

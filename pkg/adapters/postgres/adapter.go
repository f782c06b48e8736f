package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// AdapterType идентификатор PostgreSQL адаптера
const AdapterType = "postgres"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Регистрация адаптера в глобальной фабрике
func init() {
	adapters.Register(AdapterType, Open)
}

// Adapter представляет пул соединений к PostgreSQL
// Реализует интерфейс adapters.Adapter
type Adapter struct {
	pool *pgxpool.Pool
	name string
}

// Open создает пул без установки соединений
// MinConns = 0, поэтому pgxpool не подключается до первого Acquire
func Open(ctx context.Context, cfg adapters.Config) (adapters.Adapter, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = int32(cfg.MaxConns)
	config.MinConns = 0
	config.MaxConnIdleTime = cfg.IdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &Adapter{pool: pool, name: cfg.Name}, nil
}

// BuildDSN возвращает строку подключения с учетом SSL режима
// Если DSN не задан, он собирается из Host/Port/User/Password/Database
func BuildDSN(cfg adapters.Config) (string, error) {
	dsn := cfg.DSN
	if dsn == "" {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   cfg.HostPort(),
			Path:   "/" + cfg.Database,
		}
		dsn = u.String()
	}

	if cfg.SSL.Mode == "" {
		return dsn, nil
	}

	// URL форма: postgres://... или postgresql://...
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse connection url: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", cfg.SSL.Mode)
		}
		if cfg.SSL.CAPath != "" && q.Get("sslrootcert") == "" {
			q.Set("sslrootcert", cfg.SSL.CAPath)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	// keyword/value форма: host=... user=...
	if !strings.Contains(dsn, "sslmode=") {
		dsn += " sslmode=" + cfg.SSL.Mode
	}
	return dsn, nil
}

// Acquire выдает соединение из пула
func (a *Adapter) Acquire(ctx context.Context) (adapters.Conn, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgConn{conn: conn}, nil
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.pool.Ping(ctx)
}

// Close закрывает connection pool
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Name возвращает логическое имя пула
func (a *Adapter) Name() string {
	return a.name
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// Convention - PostgreSQL использует $1, $2, ...
func (a *Adapter) Convention() adapters.Convention {
	return adapters.ConventionDollar
}

// Stats возвращает состояние пула
func (a *Adapter) Stats() adapters.PoolStats {
	s := a.pool.Stat()
	return adapters.PoolStats{
		MaxConns: int(s.MaxConns()),
		InUse:    int(s.AcquiredConns()),
		Idle:     int(s.IdleConns()),
	}
}

// IsConnectionException распознает SQLSTATE, означающие недоступность сервера:
// класс 08 (connection exception) и 57P01-57P03 (сервер останавливается
// или еще не принимает соединения)
func (a *Adapter) IsConnectionException(err error) bool {
	return IsConnectionException(err)
}

// IsConnectionException - см. Adapter.IsConnectionException
func IsConnectionException(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if strings.HasPrefix(pgErr.Code, "08") {
		return true
	}
	switch pgErr.Code {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности (23505)
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Pool возвращает *pgxpool.Pool для прямого доступа
func (a *Adapter) Pool() *pgxpool.Pool {
	return a.pool
}

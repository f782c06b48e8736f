package base

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// Compile-time check
var _ adapters.Adapter = (*SQLAdapter)(nil)

// ReadOnlyMode - как СУБД выполняет запрос только на чтение
type ReadOnlyMode int

const (
	// ReadOnlyTx - транзакция READ ONLY, затем откат (MySQL)
	ReadOnlyTx ReadOnlyMode = iota

	// ReadOnlyQueryOnly - PRAGMA query_only на время запроса (SQLite)
	ReadOnlyQueryOnly

	// ReadOnlyRollback - обычная транзакция, всегда откатывается (MS SQL Server
	// не поддерживает READ ONLY транзакции)
	ReadOnlyRollback
)

// Dialect - отличия СУБД, которые учитывает SQLAdapter
type Dialect struct {
	Convention adapters.Convention

	// Detector распознает ошибки соединения драйвера (nil - таких нет)
	Detector func(error) bool

	// Rewrite переписывает запрос после нормализации параметров (nil - без изменений)
	Rewrite func(query string) string

	// LastInsertID: "INSERT ... RETURNING col" выполняется без RETURNING,
	// col берется из sql.Result.LastInsertId того же соединения (MySQL)
	LastInsertID bool

	ReadOnly ReadOnlyMode
}

// SQLAdapter реализует adapters.Adapter поверх database/sql
// Общая часть для SQLite, MySQL и MS SQL Server: отличаются только драйвер
// и Dialect
type SQLAdapter struct {
	db      *sql.DB
	name    string
	dbType  string
	dialect Dialect
}

// NewSQLAdapter оборачивает открытый *sql.DB и применяет лимиты пула из cfg
func NewSQLAdapter(db *sql.DB, cfg adapters.Config, dialect Dialect) *SQLAdapter {
	// MaxOpenConns: вызывающие сверх лимита ждут в очереди database/sql
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	return &SQLAdapter{
		db:      db,
		name:    cfg.Name,
		dbType:  cfg.Type,
		dialect: dialect,
	}
}

// Acquire выдает выделенное соединение из пула
func (a *SQLAdapter) Acquire(ctx context.Context) (adapters.Conn, error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlConn{conn: conn, dialect: &a.dialect}, nil
}

// Ping проверяет доступность БД
func (a *SQLAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close закрывает пул
func (a *SQLAdapter) Close() error {
	return a.db.Close()
}

// Name возвращает логическое имя пула
func (a *SQLAdapter) Name() string {
	return a.name
}

// GetDatabaseType возвращает тип СУБД
func (a *SQLAdapter) GetDatabaseType() string {
	return a.dbType
}

// Convention возвращает формат параметров
func (a *SQLAdapter) Convention() adapters.Convention {
	return a.dialect.Convention
}

// Stats возвращает состояние пула
func (a *SQLAdapter) Stats() adapters.PoolStats {
	s := a.db.Stats()
	return adapters.PoolStats{
		MaxConns: s.MaxOpenConnections,
		InUse:    s.InUse,
		Idle:     s.Idle,
	}
}

// IsConnectionException делегирует специфичному детектору драйвера
func (a *SQLAdapter) IsConnectionException(err error) bool {
	if a.dialect.Detector == nil || err == nil {
		return false
	}
	return a.dialect.Detector(err)
}

// DB возвращает *sql.DB для прямого доступа (helper метод)
func (a *SQLAdapter) DB() *sql.DB {
	return a.db
}

// sqlConn - соединение database/sql, выданное пулом
type sqlConn struct {
	conn    *sql.Conn
	dialect *Dialect
}

// Query выполняет запрос на выделенном соединении
func (c *sqlConn) Query(ctx context.Context, query string, args ...any) ([]adapters.Row, error) {
	if c.dialect.LastInsertID {
		if stmt, col, ok := SplitReturning(query); ok {
			return c.insertID(ctx, stmt, col, args)
		}
	}
	return c.query(ctx, c.rewrite(query), args)
}

// QueryReadOnly выполняет запрос так, что он не может изменить данные
func (c *sqlConn) QueryReadOnly(ctx context.Context, query string, args ...any) ([]adapters.Row, error) {
	query = c.rewrite(query)

	if c.dialect.ReadOnly == ReadOnlyQueryOnly {
		if _, err := c.conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return nil, err
		}
		defer func() {
			if _, err := c.conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF"); err != nil {
				c.discard()
			}
		}()
		return c.query(ctx, query, args)
	}

	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: c.dialect.ReadOnly == ReadOnlyTx})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows)
}

// Release возвращает соединение в пул
func (c *sqlConn) Release() {
	_ = c.conn.Close()
}

func (c *sqlConn) rewrite(query string) string {
	if c.dialect.Rewrite == nil {
		return query
	}
	return c.dialect.Rewrite(query)
}

func (c *sqlConn) query(ctx context.Context, query string, args []any) ([]adapters.Row, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows)
}

// insertID выполняет INSERT и возвращает сгенерированный ключ строкой {col: id}
func (c *sqlConn) insertID(ctx context.Context, stmt, col string, args []any) ([]adapters.Row, error) {
	res, err := c.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read last insert id: %w", err)
	}
	return []adapters.Row{{col: id}}, nil
}

// discard убирает соединение из пула: его состояние сессии не удалось восстановить
func (c *sqlConn) discard() {
	_ = c.conn.Raw(func(any) error { return driver.ErrBadConn })
}

// ScanRows читает все строки *sql.Rows в []adapters.Row
// Значения []byte копируются в string: драйверы переиспользуют буферы
func ScanRows(rows *sql.Rows) ([]adapters.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := make([]adapters.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(adapters.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

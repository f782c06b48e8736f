package cases

import (
	"context"
	"fmt"

	"github.com/ruslano69/firvault/pkg/adapters/mssql"
	"github.com/ruslano69/firvault/pkg/adapters/mysql"
	"github.com/ruslano69/firvault/pkg/adapters/postgres"
	"github.com/ruslano69/firvault/pkg/adapters/sqlite"
	"github.com/ruslano69/firvault/pkg/datastore"
)

// Поддерживаемые диалекты DDL; совпадают с типами адаптеров
const (
	DialectPostgres = postgres.AdapterType
	DialectSQLite   = sqlite.AdapterType
	DialectMySQL    = mysql.AdapterType
	DialectMSSQL    = mssql.AdapterType
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id   BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id          BIGSERIAL PRIMARY KEY,
		fir_number  TEXT NOT NULL UNIQUE,
		station_id  BIGINT NOT NULL REFERENCES stations(id),
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'open',
		created_by  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_station_created ON cases (station_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS persons (
		id         BIGSERIAL PRIMARY KEY,
		case_id    BIGINT NOT NULL REFERENCES cases(id),
		full_name  TEXT NOT NULL,
		role       TEXT NOT NULL,
		contact    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_persons_case ON persons (case_id)`,
}

// AUTOINCREMENT: id удаленного дела не переиспользуется
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		fir_number  TEXT NOT NULL UNIQUE,
		station_id  INTEGER NOT NULL REFERENCES stations(id),
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'open',
		created_by  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_station_created ON cases (station_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS persons (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id    INTEGER NOT NULL REFERENCES cases(id),
		full_name  TEXT NOT NULL,
		role       TEXT NOT NULL,
		contact    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_persons_case ON persons (case_id)`,
}

// MySQL: TEXT не может быть UNIQUE и иметь DEFAULT, поэтому VARCHAR;
// CREATE INDEX IF NOT EXISTS нет, индексы объявлены в CREATE TABLE
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id   BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(32) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cases (
		id          BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		fir_number  VARCHAR(64) NOT NULL UNIQUE,
		station_id  BIGINT NOT NULL,
		title       VARCHAR(512) NOT NULL,
		description TEXT NOT NULL,
		status      VARCHAR(32) NOT NULL DEFAULT 'open',
		created_by  VARCHAR(255) NOT NULL DEFAULT '',
		created_at  DATETIME(6) NOT NULL,
		INDEX idx_cases_station_created (station_id, created_at),
		FOREIGN KEY (station_id) REFERENCES stations(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS persons (
		id         BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		case_id    BIGINT NOT NULL,
		full_name  VARCHAR(255) NOT NULL,
		role       VARCHAR(64) NOT NULL,
		contact    VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		INDEX idx_persons_case (case_id),
		FOREIGN KEY (case_id) REFERENCES cases(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// MS SQL Server: IF NOT EXISTS для таблиц и индексов проверяется по каталогу
var mssqlSchema = []string{
	`IF OBJECT_ID(N'stations', N'U') IS NULL
	CREATE TABLE stations (
		id   BIGINT IDENTITY(1,1) PRIMARY KEY,
		code NVARCHAR(32) NOT NULL UNIQUE,
		name NVARCHAR(255) NOT NULL
	)`,
	`IF OBJECT_ID(N'cases', N'U') IS NULL
	CREATE TABLE cases (
		id          BIGINT IDENTITY(1,1) PRIMARY KEY,
		fir_number  NVARCHAR(64) NOT NULL UNIQUE,
		station_id  BIGINT NOT NULL REFERENCES stations(id),
		title       NVARCHAR(512) NOT NULL,
		description NVARCHAR(MAX) NOT NULL DEFAULT '',
		status      NVARCHAR(32) NOT NULL DEFAULT 'open',
		created_by  NVARCHAR(255) NOT NULL DEFAULT '',
		created_at  DATETIME2 NOT NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_cases_station_created')
	CREATE INDEX idx_cases_station_created ON cases (station_id, created_at)`,
	`IF OBJECT_ID(N'persons', N'U') IS NULL
	CREATE TABLE persons (
		id         BIGINT IDENTITY(1,1) PRIMARY KEY,
		case_id    BIGINT NOT NULL REFERENCES cases(id),
		full_name  NVARCHAR(255) NOT NULL,
		role       NVARCHAR(64) NOT NULL,
		contact    NVARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME2 NOT NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_persons_case')
	CREATE INDEX idx_persons_case ON persons (case_id)`,
}

// Schema возвращает DDL-операторы для диалекта (по одному на вызов Execute)
func Schema(dialect string) ([]string, error) {
	switch dialect {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectSQLite:
		return sqliteSchema, nil
	case DialectMySQL:
		return mysqlSchema, nil
	case DialectMSSQL:
		return mssqlSchema, nil
	default:
		return nil, fmt.Errorf("no schema for dialect %q (supported: postgres, sqlite, mysql, mssql)", dialect)
	}
}

// ApplySchema создает таблицы и индексы через q в диалекте dialect
func ApplySchema(ctx context.Context, q datastore.Querier, dialect string) error {
	stmts, err := Schema(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := q.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SchemaResult - итог применения схемы к одному пулу
type SchemaResult struct {
	Role    string // primary или fallback
	Name    string
	Dialect string
	Err     error
}

// ApplySchemaAll применяет схему к каждому пулу отдельно, в его диалекте
// Ошибка одного пула не останавливает остальные
func ApplySchemaAll(ctx context.Context, backends []*datastore.Backend) []SchemaResult {
	results := make([]SchemaResult, 0, len(backends))
	for _, b := range backends {
		res := SchemaResult{Role: b.Role(), Name: b.Name(), Dialect: b.Type()}
		res.Err = ApplySchema(ctx, b, res.Dialect)
		results = append(results, res)
	}
	return results
}

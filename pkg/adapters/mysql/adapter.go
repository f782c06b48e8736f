package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/adapters/base"
)

// AdapterType идентификатор MySQL адаптера
const AdapterType = "mysql"

// Коды ошибок сервера MySQL, означающие недоступность
const (
	errTooManyConnections = 1040 // ER_CON_COUNT_ERROR
	errServerShutdown     = 1053 // ER_SERVER_SHUTDOWN
	errNormalShutdown     = 1077 // ER_NORMAL_SHUTDOWN
	errAbortingConnection = 1152 // ER_ABORTING_CONNECTION
	errDupEntry           = 1062 // ER_DUP_ENTRY
)

func init() {
	// Регистрируем MySQL адаптер в фабрике
	adapters.Register(AdapterType, Open)
}

// Open открывает пул database/sql к MySQL без подключения
func Open(_ context.Context, cfg adapters.Config) (adapters.Adapter, error) {
	db, err := sql.Open("mysql", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return base.NewSQLAdapter(db, cfg, base.Dialect{
		Convention:   adapters.ConventionQuestion,
		Detector:     IsConnectionException,
		LastInsertID: true,
		ReadOnly:     base.ReadOnlyTx,
	}), nil
}

// BuildDSN возвращает cfg.DSN или собирает его из отдельных полей
// Время всегда разбирается в time.Time в UTC, в том числе для готового DSN
func BuildDSN(cfg adapters.Config) string {
	if cfg.DSN != "" {
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			// ошибку разбора вернет драйвер при первом подключении
			return cfg.DSN
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN()
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.HostPort()
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.SSL.Required() {
		mc.TLSConfig = "skip-verify"
		if cfg.SSL.Mode == "verify-full" || cfg.SSL.Mode == "verify-ca" {
			mc.TLSConfig = "true"
		}
	}
	return mc.FormatDSN()
}

// IsConnectionException - разорванное соединение или сервер отказывает в подключении
func IsConnectionException(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case errTooManyConnections, errServerShutdown, errNormalShutdown, errAbortingConnection:
		return true
	}
	return false
}

// IsUniqueViolation - Duplicate entry (1062)
func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry
}

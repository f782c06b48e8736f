// Package sqlite - адаптер SQLite (modernc.org/sqlite, pure Go)
// Используется как резервное хранилище и в тестах
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/adapters/base"
)

// AdapterType идентификатор SQLite адаптера
const AdapterType = "sqlite"

// DefaultBusyTimeoutMS - сколько писатель ждет блокировку файла
const DefaultBusyTimeoutMS = 5000

func init() {
	adapters.Register(AdapterType, Open)
}

// Open открывает пул database/sql поверх файла БД
// Файл не открывается до первого Acquire
// БД в памяти существует в пределах одного соединения, поэтому ее пул
// ограничен одним соединением без вытеснения по простою
func Open(_ context.Context, cfg adapters.Config) (adapters.Adapter, error) {
	dsn := BuildDSN(cfg)
	if IsMemory(dsn) {
		cfg.MaxConns = 1
		cfg.IdleTimeout = 0
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return base.NewSQLAdapter(db, cfg, base.Dialect{
		Convention: adapters.ConventionQuestion,
		Detector:   IsConnectionException,
		ReadOnly:   base.ReadOnlyQueryOnly,
	}), nil
}

// BuildDSN добавляет к DSN прагмы, которые должны действовать на каждом
// соединении пула (busy_timeout, foreign_keys), и формат записи времени,
// совместимый с функциями даты SQLite
// Если DSN пустой, используется cfg.Database как путь к файлу
func BuildDSN(cfg adapters.Config) string {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Database
	}
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	var pragmas []string
	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", DefaultBusyTimeoutMS))
	}
	if !strings.Contains(dsn, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "_time_format") {
		pragmas = append(pragmas, "_time_format=sqlite")
	}
	if len(pragmas) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// IsMemory сообщает, что DSN указывает на БД в памяти
func IsMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// IsConnectionException - файл БД недоступен (SQLITE_CANTOPEN, SQLITE_NOTADB)
func IsConnectionException(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
		return true
	}
	return false
}

// IsUniqueViolation сообщает о нарушении UNIQUE или PRIMARY KEY
// Без расширенных кодов ошибки различаются только по тексту
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch code := sqliteErr.Code(); code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

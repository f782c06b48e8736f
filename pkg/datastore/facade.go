package datastore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/faults"
)

// Querier - единственная точка входа в хранилище для репозиториев и аллокатора
type Querier interface {
	// Execute возвращает все строки результата (пустой срез, не nil)
	Execute(ctx context.Context, query string, params ...any) ([]adapters.Row, error)

	// QueryOne возвращает первую строку; ok == false, если строк нет
	QueryOne(ctx context.Context, query string, params ...any) (row adapters.Row, ok bool, err error)
}

// ReadOnlyQuerier - Querier, умеющий выполнять запросы только на чтение
type ReadOnlyQuerier interface {
	Querier

	// ExecuteReadOnly выполняет запрос так, что изменение данных отклоняется СУБД
	ExecuteReadOnly(ctx context.Context, query string, params ...any) ([]adapters.Row, error)
}

// Compile-time check
var _ ReadOnlyQuerier = (*DB)(nil)

// DB - фасад выполнения запросов поверх Router
type DB struct {
	m      *Manager
	router *Router
	log    zerolog.Logger
}

// New создает фасад
func New(m *Manager, logger zerolog.Logger) *DB {
	return &DB{
		m:      m,
		router: NewRouter(m, logger),
		log:    logger,
	}
}

// Config - конфигурация двух пулов
type Config struct {
	// Primary - nil, если primary не настроен
	Primary  *adapters.Config
	Fallback adapters.Config
}

// Open открывает оба пула через фабрику адаптеров и собирает фасад
// Соединения не устанавливаются: недоступный primary не мешает старту
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	var primary adapters.Adapter
	if cfg.Primary != nil {
		p := *cfg.Primary
		if p.Name == "" {
			p.Name = "primary"
		}
		a, err := adapters.Open(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("open primary: %w", err)
		}
		primary = a
	}

	fb := cfg.Fallback
	if fb.Name == "" {
		fb.Name = "fallback"
	}
	fallback, err := adapters.Open(ctx, fb)
	if err != nil {
		if primary != nil {
			_ = primary.Close()
		}
		return nil, fmt.Errorf("open fallback: %w", err)
	}

	m, err := NewManager(primary, fallback, nil, logger)
	if err != nil {
		return nil, err
	}
	return New(m, logger), nil
}

// Execute выполняет запрос и возвращает все строки
// Для INSERT/UPDATE с RETURNING возвращает возвращенные строки
func (db *DB) Execute(ctx context.Context, query string, params ...any) ([]adapters.Row, error) {
	if err := checkParams("execute", query, params); err != nil {
		return nil, err
	}
	return nonNil(db.router.Run(ctx, query, params))
}

// ExecuteReadOnly выполняет запрос в режиме только чтения с тем же
// переключением на fallback, что и Execute
func (db *DB) ExecuteReadOnly(ctx context.Context, query string, params ...any) ([]adapters.Row, error) {
	if err := checkParams("execute read-only", query, params); err != nil {
		return nil, err
	}
	return nonNil(db.router.RunReadOnly(ctx, query, params))
}

func checkParams(op, query string, params []any) error {
	if n := CountPlaceholders(query); n != len(params) {
		return faults.Newf(faults.KindQueryRejected, op,
			"query expects %d parameters, %d supplied", n, len(params))
	}
	return nil
}

func nonNil(rows []adapters.Row, err error) ([]adapters.Row, error) {
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []adapters.Row{}
	}
	return rows, nil
}

// QueryOne выполняет запрос и возвращает первую строку
// Отсутствие строк - не ошибка: ok == false
func (db *DB) QueryOne(ctx context.Context, query string, params ...any) (adapters.Row, bool, error) {
	rows, err := db.Execute(ctx, query, params...)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// ExecuteAs выполняет запрос и преобразует каждую строку через mapRow
func ExecuteAs[T any](ctx context.Context, q Querier, mapRow func(adapters.Row) (T, error), query string, params ...any) ([]T, error) {
	rows, err := q.Execute(ctx, query, params...)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := mapRow(row)
		if err != nil {
			return nil, fmt.Errorf("map row: %w", err)
		}
		result = append(result, v)
	}
	return result, nil
}

// QueryOneAs выполняет запрос и преобразует первую строку через mapRow
func QueryOneAs[T any](ctx context.Context, q Querier, mapRow func(adapters.Row) (T, error), query string, params ...any) (T, bool, error) {
	var zero T

	row, ok, err := q.QueryOne(ctx, query, params...)
	if err != nil || !ok {
		return zero, false, err
	}

	v, err := mapRow(row)
	if err != nil {
		return zero, false, fmt.Errorf("map row: %w", err)
	}
	return v, true, nil
}

// Mode возвращает текущий режим работы
func (db *DB) Mode() Mode {
	return db.m.State().Mode()
}

// Close закрывает пулы
func (db *DB) Close() error {
	return db.m.Close()
}
